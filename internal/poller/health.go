package poller

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/pps-player/tablewatch/internal/ws"
)

// health tracks consecutive tick failures. poll() writes it from the poll
// goroutine while the broadcaster and the HTTP API read snapshots, so every
// field is guarded by mu.
type health struct {
	mu                  sync.Mutex
	consecutiveFailures int
	cardErrors          int // card errors in the latest tick
	lastErr             string
	lastFailure         time.Time
	lastSuccess         time.Time
	lastAttempt         time.Time
	loggedIn            bool
	lastEmittedStatus   ws.HealthStatus

	proc *process.Process
}

func newHealth() *health {
	h := &health{lastEmittedStatus: ws.StatusHealthy}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		h.proc = p
	}
	return h
}

func (h *health) recordAttempt(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastAttempt = at
	h.cardErrors = 0
}

func (h *health) recordSuccess(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures = 0
	h.lastSuccess = at
	if h.cardErrors == 0 {
		h.lastErr = ""
	}
}

func (h *health) recordFailure(err error, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	h.lastErr = err.Error()
	h.lastFailure = at
}

func (h *health) recordCardError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cardErrors++
	h.lastErr = err.Error()
}

func (h *health) setLoggedIn(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loggedIn = v
}

// statusLocked computes health status. Caller must hold h.mu.
func (h *health) statusLocked(threshold int) ws.HealthStatus {
	if h.consecutiveFailures >= threshold {
		return ws.StatusFailed
	}
	if h.consecutiveFailures > 0 || h.cardErrors > 0 {
		return ws.StatusDegraded
	}
	return ws.StatusHealthy
}

func (h *health) payloadLocked(threshold int) ws.HealthPayload {
	return ws.HealthPayload{
		Status:              h.statusLocked(threshold),
		ConsecutiveFailures: h.consecutiveFailures,
		CardErrors:          h.cardErrors,
		LastError:           h.lastErr,
		LastSuccess:         h.lastSuccess,
		LastAttempt:         h.lastAttempt,
		LoggedIn:            h.loggedIn,
	}
}

// snapshot returns a consistent copy of the health fields plus current
// process stats.
func (h *health) snapshot(threshold int) ws.HealthPayload {
	h.mu.Lock()
	p := h.payloadLocked(threshold)
	h.mu.Unlock()
	p.Process = h.processStats()
	return p
}

// snapshotAndEmit is snapshot plus whether the status changed since the
// last emission. If it changed, the new status is remembered.
func (h *health) snapshotAndEmit(threshold int) (ws.HealthPayload, bool) {
	h.mu.Lock()
	p := h.payloadLocked(threshold)
	changed := p.Status != h.lastEmittedStatus
	if changed {
		h.lastEmittedStatus = p.Status
	}
	h.mu.Unlock()
	p.Process = h.processStats()
	return p, changed
}

func (h *health) processStats() *ws.ProcessStats {
	if h.proc == nil {
		return nil
	}
	stats := &ws.ProcessStats{}
	if mem, err := h.proc.MemoryInfo(); err == nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := h.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}
