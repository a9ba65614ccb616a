package status

import (
	"strings"
	"testing"
	"time"

	"github.com/pps-player/tablewatch/internal/ws"
)

func TestLastSync(t *testing.T) {
	m := New()
	if got := m.LastSync(); got != "not synced yet" {
		t.Errorf("LastSync before any sync = %q", got)
	}
	at := time.Date(2025, 6, 1, 14, 3, 7, 0, time.Local)
	m.Health.LastSuccess = at
	if got := m.LastSync(); got != "last sync at 14:03:07" {
		t.Errorf("LastSync = %q", got)
	}
}

func TestView(t *testing.T) {
	m := New()
	m.Width = 160
	if v := m.View(); !strings.Contains(v, "Connecting") {
		t.Error("disconnected bar should say Connecting")
	}

	m.Connected = true
	m.StoreID = "gangnam"
	m.Health = ws.HealthPayload{Status: ws.StatusDegraded, ConsecutiveFailures: 2, LastError: "login rejected"}
	v := m.View()
	for _, want := range []string{"Connected", "gangnam", "degraded (2 failed)", "login rejected"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}

	m.Health = ws.HealthPayload{Status: ws.StatusHealthy, LastError: "stale"}
	if v := m.View(); strings.Contains(v, "stale") {
		t.Error("healthy bar should not show the last error")
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-5 * time.Second), "5s ago"},
		{now.Add(-(2*time.Minute + 3*time.Second)), "2m 3s ago"},
		{now.Add(-(3*time.Hour + 4*time.Minute)), "3h 4m ago"},
	}
	for _, tt := range tests {
		if got := Age(tt.t, now); got != tt.want {
			t.Errorf("Age(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
