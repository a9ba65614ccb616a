package detector

import (
	"testing"

	"github.com/pps-player/tablewatch/internal/table"
)

func TestSpokenName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1번", "일번"},
		{"3번", "삼번"},
		{"10번", "십번"},
		{"11번", "십일번"},
		{"12번", "십이번"},
		{"20번", "이십번"},
		{"105번", "백오번"},
		{"0번", "영번"},
		{"7", "칠"},
		{"3 번 테이블", "삼 번 테이블"},
		{"VIP룸", "VIP룸"},
		{"3A", "3A"},
		{"룸3", "룸3"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SpokenName(tt.in); got != tt.want {
			t.Errorf("SpokenName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnnouncement(t *testing.T) {
	tests := []struct {
		event table.Event
		want  string
	}{
		{table.Event{TableName: "1번", Kind: table.EventStarted}, "일번 게임이 시작되었습니다"},
		{table.Event{TableName: "2번", Kind: table.EventEndingSoon}, "이번 5분 남았습니다"},
		{table.Event{TableName: "VIP룸", Kind: table.EventEnded}, "VIP룸 게임이 종료되었습니다"},
	}

	for _, tt := range tests {
		if got := Announcement(tt.event); got != tt.want {
			t.Errorf("Announcement(%+v) = %q, want %q", tt.event, got, tt.want)
		}
	}
}
