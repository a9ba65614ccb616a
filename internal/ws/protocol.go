package ws

import (
	"time"

	"github.com/pps-player/tablewatch/internal/table"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgEvent    MessageType = "event"
	MsgHealth   MessageType = "health"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload is the full board: the latest entry per table plus the
// poller's health.
type SnapshotPayload struct {
	StoreID string        `json:"storeId"`
	Tables  []table.Entry `json:"tables"`
	Health  HealthPayload `json:"health"`
}

// EventPayload is one announced transition.
type EventPayload struct {
	TableName string          `json:"tableName"`
	Kind      table.EventKind `json:"kind"`
	UserName  string          `json:"userName"`
	Text      string          `json:"text"`
	At        time.Time       `json:"at"`
}

type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailed   HealthStatus = "failed"
)

// HealthPayload reports how the poll loop is doing. LastSuccess is the
// "last sync at" time shown by clients; it is zero until the first good tick.
type HealthPayload struct {
	Status              HealthStatus  `json:"status"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	CardErrors          int           `json:"cardErrors"`
	LastError           string        `json:"lastError,omitempty"`
	LastSuccess         time.Time     `json:"lastSuccess"`
	LastAttempt         time.Time     `json:"lastAttempt"`
	LoggedIn            bool          `json:"loggedIn"`
	Process             *ProcessStats `json:"process,omitempty"`
}

type ProcessStats struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
}
