package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pps-player/tablewatch/internal/config"
	"github.com/pps-player/tablewatch/internal/dashboard"
	"github.com/pps-player/tablewatch/internal/history"
	"github.com/pps-player/tablewatch/internal/mock"
	"github.com/pps-player/tablewatch/internal/table"
	"github.com/pps-player/tablewatch/internal/ws"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

type recordingNotifier struct {
	texts []string
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return r.err
}

type recordingBroadcaster struct {
	hook      func() ws.SnapshotPayload
	snapshots int
	events    []ws.EventPayload
	health    []ws.HealthPayload
}

func (b *recordingBroadcaster) SetSnapshotHook(fn func() ws.SnapshotPayload) { b.hook = fn }
func (b *recordingBroadcaster) BroadcastSnapshot()                           { b.snapshots++ }
func (b *recordingBroadcaster) BroadcastEvent(e ws.EventPayload)             { b.events = append(b.events, e) }
func (b *recordingBroadcaster) BroadcastHealth(h ws.HealthPayload)           { b.health = append(b.health, h) }

type fixture struct {
	dash     *mock.Dashboard
	clock    *clock
	store    history.Store
	notifier *recordingNotifier
	bcast    *recordingBroadcaster
	client   *dashboard.Client
	creds    dashboard.Credentials
}

var gameStart = time.Date(2025, 6, 1, 14, 0, 0, 0, time.Local)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dash:     mock.NewDashboard("store", "pw"),
		clock:    &clock{t: gameStart.Add(time.Minute)},
		notifier: &recordingNotifier{},
		bcast:    &recordingBroadcaster{},
		creds:    dashboard.Credentials{StoreID: "store", Password: "pw", StoreIndex: "1", ZoneIndex: "1"},
	}
	f.dash.Now = f.clock.Now
	f.dash.SetTables(mock.Table{Name: "1번", User: "홍길동", Start: gameStart, End: gameStart.Add(5 * time.Minute)})
	f.store = history.NewMemoryStore(history.WithClock(f.clock.Now))

	srv := httptest.NewServer(f.dash)
	t.Cleanup(srv.Close)
	client, err := dashboard.NewClient(dashboard.Options{BaseURL: srv.URL, Timeout: time.Second, ProbeTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	f.client = client
	return f
}

func (f *fixture) poller(threshold int) *Poller {
	cfg := config.PollConfig{Interval: time.Second, FailureThreshold: threshold}
	return New(cfg, f.creds, f.client, f.store, f.notifier, f.bcast, WithClock(f.clock.Now))
}

func TestTickLifecycle(t *testing.T) {
	f := newFixture(t)
	p := f.poller(3)
	ctx := context.Background()
	p.seed(ctx)

	// 14:01, one table with four minutes left.
	p.tick(ctx)
	if len(f.notifier.texts) != 1 || f.notifier.texts[0] != "일번 게임이 시작되었습니다" {
		t.Fatalf("first tick announced %v", f.notifier.texts)
	}
	snap := p.Snapshot()
	if len(snap.Tables) != 1 {
		t.Fatalf("snapshot has %d tables", len(snap.Tables))
	}
	got := snap.Tables[0]
	if got.RemainingSeconds != 240 || got.Status != table.EndingSoon || got.UserName != "홍길동" {
		t.Errorf("latest = %+v, want 240s ending_soon", got)
	}

	// 14:02, still ending soon: nothing new.
	f.clock.t = gameStart.Add(2 * time.Minute)
	p.tick(ctx)
	if len(f.notifier.texts) != 1 {
		t.Errorf("unchanged tick announced %v", f.notifier.texts[1:])
	}

	// 14:05, the game ended.
	f.clock.t = gameStart.Add(5 * time.Minute)
	p.tick(ctx)
	if len(f.notifier.texts) != 2 || f.notifier.texts[1] != "일번 게임이 종료되었습니다" {
		t.Errorf("ending tick announced %v", f.notifier.texts)
	}

	if len(f.bcast.events) != 2 || f.bcast.events[1].Kind != table.EventEnded {
		t.Errorf("broadcast events = %+v", f.bcast.events)
	}
	if f.bcast.snapshots != 3 {
		t.Errorf("snapshots broadcast = %d, want 3", f.bcast.snapshots)
	}
	if f.dash.Logins() != 1 {
		t.Errorf("logins = %d, want the session reused", f.dash.Logins())
	}

	hist, _ := f.store.History(ctx, "store", "1번", 0)
	if len(hist) != 3 {
		t.Errorf("history has %d rows, want 3", len(hist))
	}
	if h := p.Health(); h.Status != ws.StatusHealthy || !h.LastSuccess.Equal(f.clock.t) || !h.LoggedIn {
		t.Errorf("health = %+v", h)
	}
}

func TestEndingSoonAfterPlaying(t *testing.T) {
	f := newFixture(t)
	f.dash.SetTables(mock.Table{Name: "2번", User: "김철수", Start: gameStart, End: gameStart.Add(30 * time.Minute)})
	p := f.poller(3)
	ctx := context.Background()

	p.tick(ctx)
	f.clock.t = gameStart.Add(26 * time.Minute)
	p.tick(ctx)

	want := []string{"이번 게임이 시작되었습니다", "이번 5분 남았습니다"}
	if len(f.notifier.texts) != len(want) {
		t.Fatalf("announced %v, want %v", f.notifier.texts, want)
	}
	for i := range want {
		if f.notifier.texts[i] != want[i] {
			t.Errorf("announcement %d = %q, want %q", i, f.notifier.texts[i], want[i])
		}
	}
}

func TestRestartDoesNotReannounce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.poller(3)
	first.seed(ctx)
	first.tick(ctx)
	if len(f.notifier.texts) != 1 {
		t.Fatalf("first run announced %v", f.notifier.texts)
	}

	// A new poller over the same history picks up where the first left off.
	second := f.poller(3)
	second.seed(ctx)
	if len(second.Snapshot().Tables) != 1 {
		t.Error("seeded poller should expose the stored board before its first tick")
	}
	second.tick(ctx)
	if len(f.notifier.texts) != 1 {
		t.Errorf("restart re-announced: %v", f.notifier.texts)
	}
}

func TestExpiredSessionRelogin(t *testing.T) {
	f := newFixture(t)
	p := f.poller(3)
	ctx := context.Background()

	p.tick(ctx)
	f.dash.ExpireSessions()

	p.tick(ctx)
	if p.session != nil {
		t.Error("expired session should be dropped")
	}
	h := p.Health()
	if h.ConsecutiveFailures != 1 || h.Status != ws.StatusDegraded || h.LoggedIn {
		t.Errorf("health after expiry = %+v", h)
	}

	p.tick(ctx)
	if f.dash.Logins() != 2 {
		t.Errorf("logins = %d, want a second login", f.dash.Logins())
	}
	if h := p.Health(); h.ConsecutiveFailures != 0 || h.Status != ws.StatusHealthy {
		t.Errorf("health after relogin = %+v", h)
	}
}

func TestRejectedLoginMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.creds.Password = "wrong"
	p := f.poller(2)
	ctx := context.Background()

	p.tick(ctx)
	p.tick(ctx)

	h := p.Health()
	if h.Status != ws.StatusFailed || h.ConsecutiveFailures != 2 {
		t.Errorf("health = %+v, want failed after 2 ticks", h)
	}
	if len(f.bcast.health) != 2 {
		t.Fatalf("health broadcasts = %+v, want degraded then failed", f.bcast.health)
	}
	if f.bcast.health[0].Status != ws.StatusDegraded || f.bcast.health[1].Status != ws.StatusFailed {
		t.Errorf("health transitions = %v, %v", f.bcast.health[0].Status, f.bcast.health[1].Status)
	}
	if len(f.notifier.texts) != 0 || f.bcast.snapshots != 0 {
		t.Error("failed ticks should not announce or broadcast a board")
	}
}

func TestZoneProbeFailureStillPolls(t *testing.T) {
	f := newFixture(t)
	f.dash.SetProbeStatus(http.StatusInternalServerError)
	p := f.poller(3)
	ctx := context.Background()

	p.tick(ctx)
	if f.dash.Logins() != 1 || f.dash.Fetches() != 1 {
		t.Fatalf("logins = %d fetches = %d, want 1 each", f.dash.Logins(), f.dash.Fetches())
	}
	if len(f.notifier.texts) != 1 || f.notifier.texts[0] != "일번 게임이 시작되었습니다" {
		t.Errorf("announced %v", f.notifier.texts)
	}
	if h := p.Health(); h.Status != ws.StatusHealthy || !h.LoggedIn {
		t.Errorf("health = %+v", h)
	}
}

func TestNotifierFailureDoesNotStopTick(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("speaker offline")
	p := f.poller(3)

	p.tick(context.Background())
	if len(f.bcast.events) != 1 {
		t.Errorf("event should still be broadcast, got %d", len(f.bcast.events))
	}
	if p.Health().Status != ws.StatusHealthy {
		t.Errorf("notify errors should not affect poll health, got %v", p.Health().Status)
	}
}

func TestIdleStoreHasNoEvents(t *testing.T) {
	f := newFixture(t)
	f.dash.SetTables()
	p := f.poller(3)

	p.tick(context.Background())
	if len(f.notifier.texts) != 0 {
		t.Errorf("idle store announced %v", f.notifier.texts)
	}
	if p.Health().Status != ws.StatusHealthy {
		t.Errorf("empty fragment is a healthy poll, got %v", p.Health().Status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	p := f.poller(3)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.dash.Fetches() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if f.dash.Fetches() == 0 {
		t.Error("Run should poll immediately on start")
	}
}

func TestSnapshotHookRegistered(t *testing.T) {
	f := newFixture(t)
	f.poller(3)
	if f.bcast.hook == nil {
		t.Fatal("New should register the snapshot hook")
	}
	if got := f.bcast.hook(); got.StoreID != "store" {
		t.Errorf("hook snapshot = %+v", got)
	}
}
