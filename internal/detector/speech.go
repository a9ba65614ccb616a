package detector

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pps-player/tablewatch/internal/table"
)

var sinoDigits = [10]string{"영", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}

var sinoUnits = [4]string{"", "십", "백", "천"}

// SpokenName rewrites a leading number in a table name as Sino-Korean
// numerals so speech engines read "3번" as "삼번". The number must stand
// alone as a token: "3A" and "VIP룸" are returned unchanged.
func SpokenName(name string) string {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return name
	}
	if end < len(name) {
		next, _ := utf8.DecodeRuneInString(name[end:])
		if isASCIIAlnum(next) {
			return name
		}
	}
	return sinoNumber(name[:end]) + name[end:]
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// sinoNumber reads digits as a Sino-Korean number below 10000. Longer runs
// are read digit by digit.
func sinoNumber(digits string) string {
	n, err := strconv.Atoi(digits)
	if err != nil || n >= 10000 {
		var b strings.Builder
		for _, d := range digits {
			b.WriteString(sinoDigits[d-'0'])
		}
		return b.String()
	}
	if n == 0 {
		return sinoDigits[0]
	}

	var b strings.Builder
	for place := 3; place >= 0; place-- {
		pow := 1
		for i := 0; i < place; i++ {
			pow *= 10
		}
		d := (n / pow) % 10
		if d == 0 {
			continue
		}
		// 일 is dropped before a unit: 10 is 십, not 일십.
		if d != 1 || place == 0 {
			b.WriteString(sinoDigits[d])
		}
		b.WriteString(sinoUnits[place])
	}
	return b.String()
}

// Announcement renders the text spoken for an event.
func Announcement(e table.Event) string {
	name := SpokenName(e.TableName)
	switch e.Kind {
	case table.EventStarted:
		return name + " 게임이 시작되었습니다"
	case table.EventEndingSoon:
		return name + " 5분 남았습니다"
	case table.EventEnded:
		return name + " 게임이 종료되었습니다"
	}
	return name
}
