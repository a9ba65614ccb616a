package table

import "encoding/json"

// EventKind classifies table transitions worth announcing.
type EventKind int

const (
	EventStarted    EventKind = iota // table first seen
	EventEndingSoon                  // table entered the ending-soon window
	EventEnded                       // table reached its end time
)

var eventKindNames = map[EventKind]string{
	EventStarted:    "started",
	EventEndingSoon: "ending_soon",
	EventEnded:      "ended",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *EventKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range eventKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return nil
}

// Event is a single table transition. Events are handed to notifiers as
// they are produced and never stored.
type Event struct {
	TableName string    `json:"tableName"`
	Kind      EventKind `json:"kind"`
	UserName  string    `json:"userName"`
}
