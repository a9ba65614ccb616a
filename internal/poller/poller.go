// Package poller runs the tick loop: log in, fetch the dashboard, record
// what it shows, and announce table transitions.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pps-player/tablewatch/internal/config"
	"github.com/pps-player/tablewatch/internal/dashboard"
	"github.com/pps-player/tablewatch/internal/detector"
	"github.com/pps-player/tablewatch/internal/history"
	"github.com/pps-player/tablewatch/internal/notify"
	"github.com/pps-player/tablewatch/internal/parser"
	"github.com/pps-player/tablewatch/internal/table"
	"github.com/pps-player/tablewatch/internal/ws"
)

// Broadcaster is the part of ws.Broadcaster the poller publishes to.
type Broadcaster interface {
	SetSnapshotHook(func() ws.SnapshotPayload)
	BroadcastSnapshot()
	BroadcastEvent(ws.EventPayload)
	BroadcastHealth(ws.HealthPayload)
}

type Option func(*Poller)

// WithClock replaces time.Now for parsing and health timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

type Poller struct {
	cfg         config.PollConfig
	creds       dashboard.Credentials
	client      *dashboard.Client
	store       history.Store
	notifier    notify.Notifier
	broadcaster Broadcaster
	now         func() time.Time
	tracer      trace.Tracer
	health      *health

	// Owned by the poll goroutine.
	session  *dashboard.Session
	previous table.Snapshot

	mu     sync.RWMutex // protects latest
	latest []table.Entry
}

func New(cfg config.PollConfig, creds dashboard.Credentials, client *dashboard.Client, store history.Store, notifier notify.Notifier, broadcaster Broadcaster, opts ...Option) *Poller {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	p := &Poller{
		cfg:         cfg,
		creds:       creds,
		client:      client,
		store:       store,
		notifier:    notifier,
		broadcaster: broadcaster,
		now:         time.Now,
		tracer:      otel.Tracer("tablewatch/poller"),
		health:      newHealth(),
		previous:    table.Snapshot{},
	}
	for _, opt := range opts {
		opt(p)
	}
	broadcaster.SetSnapshotHook(p.Snapshot)
	return p
}

// Run seeds the previous snapshot from the store, then ticks every
// cfg.Interval until ctx is done. Ticks never overlap; ctx is checked
// between ticks.
func (p *Poller) Run(ctx context.Context) {
	p.seed(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	log.Printf("[poller] started for store %s every %s", p.creds.StoreID, p.cfg.Interval)

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[poller] stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// seed loads the latest projection so tables already announced before a
// restart are not announced again.
func (p *Poller) seed(ctx context.Context) {
	entries, err := p.store.Latest(ctx, p.creds.StoreID)
	if err != nil {
		log.Printf("[poller] could not seed from history, starting empty: %v", err)
		return
	}
	p.previous = table.SnapshotOf(entries)
	p.setLatest(entries)
	if len(entries) > 0 {
		log.Printf("[poller] seeded %d tables from history", len(entries))
	}
}

func (p *Poller) tick(ctx context.Context) {
	tickID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "poller.tick", trace.WithAttributes(
		attribute.String("tick.id", tickID),
		attribute.String("store.id", p.creds.StoreID),
	))
	defer span.End()

	p.health.recordAttempt(p.now())
	events, err := p.poll(ctx, tickID)
	if err != nil {
		p.health.recordFailure(err, p.now())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("[poller] tick %s failed: %v", shortID(tickID), err)
	} else {
		span.SetAttributes(attribute.Int("events", events))
	}

	if h, changed := p.health.snapshotAndEmit(p.cfg.FailureThreshold); changed {
		log.Printf("[poller] health is now %s", h.Status)
		p.broadcaster.BroadcastHealth(h)
	}
}

// poll runs one tick to completion and returns the number of events
// announced.
func (p *Poller) poll(ctx context.Context, tickID string) (int, error) {
	sess, err := p.ensureSession(ctx)
	if err != nil {
		return 0, err
	}

	fragment, err := sess.Fetch(ctx, p.creds.StoreIndex, p.creds.ZoneIndex)
	if err != nil {
		if errors.Is(err, dashboard.ErrSessionExpired) {
			log.Printf("[poller] tick %s: session expired, logging in again next tick", shortID(tickID))
			p.session = nil
			p.health.setLoggedIn(false)
		}
		return 0, err
	}

	now := p.now()
	onCardError := parser.OnError(func(e *parser.CardError) {
		log.Printf("[poller] tick %s: skipping %v", shortID(tickID), e)
		p.health.recordCardError(e)
	})
	for rec := range parser.Parse(fragment, p.creds.StoreID, now, onCardError) {
		if _, err := p.store.Append(ctx, p.creds.StoreID, rec); err != nil {
			log.Printf("[poller] tick %s: dropping record: %v", shortID(tickID), err)
		}
	}

	latest, err := p.store.Latest(ctx, p.creds.StoreID)
	if err != nil {
		return 0, fmt.Errorf("read latest: %w", err)
	}
	current := table.SnapshotOf(latest)

	events := detector.Diff(p.previous, current)
	for _, e := range events {
		text := detector.Announcement(e)
		if err := p.notifier.Notify(ctx, text); err != nil {
			log.Printf("[poller] tick %s: notify %q: %v", shortID(tickID), text, err)
		}
		p.broadcaster.BroadcastEvent(ws.EventPayload{
			TableName: e.TableName,
			Kind:      e.Kind,
			UserName:  e.UserName,
			Text:      text,
			At:        now,
		})
	}

	p.previous = current
	p.setLatest(latest)
	p.health.recordSuccess(now)
	p.broadcaster.BroadcastSnapshot()
	return len(events), nil
}

// ensureSession logs in when there is no usable session. A failed login
// leaves the current session untouched.
func (p *Poller) ensureSession(ctx context.Context) (*dashboard.Session, error) {
	if p.session != nil && !p.session.Expired() {
		return p.session, nil
	}
	sess, err := p.client.Login(ctx, p.creds)
	if err != nil {
		return nil, err
	}
	p.session = sess
	p.health.setLoggedIn(true)
	return sess, nil
}

func (p *Poller) setLatest(entries []table.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = entries
}

// Snapshot returns the latest board and health. Safe for concurrent use.
func (p *Poller) Snapshot() ws.SnapshotPayload {
	p.mu.RLock()
	tables := make([]table.Entry, len(p.latest))
	copy(tables, p.latest)
	p.mu.RUnlock()

	return ws.SnapshotPayload{
		StoreID: p.creds.StoreID,
		Tables:  tables,
		Health:  p.Health(),
	}
}

// Health returns the current health report. Safe for concurrent use.
func (p *Poller) Health() ws.HealthPayload {
	return p.health.snapshot(p.cfg.FailureThreshold)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type nopBroadcaster struct{}

func (nopBroadcaster) SetSnapshotHook(func() ws.SnapshotPayload) {}
func (nopBroadcaster) BroadcastSnapshot()                        {}
func (nopBroadcaster) BroadcastEvent(ws.EventPayload)            {}
func (nopBroadcaster) BroadcastHealth(ws.HealthPayload)          {}
