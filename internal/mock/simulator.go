package mock

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

var mockUsers = []string{"홍길동", "김철수", "이영희", "박민수", "최지우", "정하늘", "강바다", "윤서준"}

// Simulator keeps a Dashboard's tables turning over so a local run sees
// games start, approach their end and finish.
type Simulator struct {
	dash     *Dashboard
	names    []string
	turnover time.Duration // how long an ended table stays on the board
}

// NewSimulator manages tables named "1번".."N번" plus a VIP room.
func NewSimulator(dash *Dashboard, tables int) *Simulator {
	names := make([]string, 0, tables+1)
	for i := 1; i <= tables; i++ {
		names = append(names, fmt.Sprintf("%d번", i))
	}
	names = append(names, "VIP룸")
	return &Simulator{dash: dash, names: names, turnover: 90 * time.Second}
}

// Start seeds the board and advances it every interval until ctx is done.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	now := s.dash.Now()
	tables := make([]Table, 0, len(s.names))
	for i, name := range s.names {
		// Stagger end times so transitions are spread out.
		t := s.newGame(name, now.Add(-time.Duration(i)*3*time.Minute))
		tables = append(tables, t)
	}
	s.dash.SetTables(tables...)
	log.Printf("[mock] dashboard seeded with %d tables", len(tables))

	go s.run(ctx, interval)
}

func (s *Simulator) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.advance(s.dash.Now())
		}
	}
}

// advance replaces tables that ended more than the turnover period ago with
// a new game.
func (s *Simulator) advance(now time.Time) {
	tables := s.dash.Tables()
	changed := false
	for i, t := range tables {
		if now.Sub(t.End) < s.turnover {
			continue
		}
		tables[i] = s.newGame(t.Name, now)
		changed = true
		log.Printf("[mock] %s: new game for %s until %s", t.Name, tables[i].User, tables[i].End.Format("15:04"))
	}
	if changed {
		s.dash.SetTables(tables...)
	}
}

func (s *Simulator) newGame(name string, start time.Time) Table {
	start = start.Truncate(time.Minute)
	length := time.Duration(10+rand.Intn(50)) * time.Minute
	return Table{
		Name:  name,
		User:  mockUsers[rand.Intn(len(mockUsers))],
		Start: start,
		End:   start.Add(length),
	}
}
