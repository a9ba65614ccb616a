package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EndingSoonWindow is how close to its end time a table is announced as
// ending soon.
const EndingSoonWindow = 300 * time.Second

type Status int

const (
	Playing Status = iota
	EndingSoon
	Ended
)

var statusNames = map[Status]string{
	Playing:    "playing",
	EndingSoon: "ending_soon",
	Ended:      "ended",
}

var statusFromName = map[string]Status{
	"playing":     Playing,
	"ending_soon": EndingSoon,
	"ended":       Ended,
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseStatus maps a stored status name back to its Status.
func ParseStatus(name string) (Status, error) {
	if s, ok := statusFromName[name]; ok {
		return s, nil
	}
	return Playing, fmt.Errorf("unknown table status %q", name)
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := statusFromName[name]; ok {
		*s = v
	}
	return nil
}

// StatusFor classifies a table by the whole seconds left until its end time.
func StatusFor(remainingSeconds int64) Status {
	switch {
	case remainingSeconds <= 0:
		return Ended
	case remainingSeconds < int64(EndingSoonWindow/time.Second):
		return EndingSoon
	default:
		return Playing
	}
}

// Classify is StatusFor on a duration, truncated to whole seconds.
func Classify(remaining time.Duration) Status {
	return StatusFor(int64(remaining / time.Second))
}

// Record is one table's state as read from a single dashboard fetch.
type Record struct {
	TableName        string    `json:"tableName"`
	UserName         string    `json:"userName"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	RemainingSeconds int64     `json:"remainingSeconds"`
	Status           Status    `json:"status"`
}

// Entry is a Record as persisted in the history, with its row id and the
// time it was ingested.
type Entry struct {
	ID         int64     `json:"id"`
	StoreID    string    `json:"storeId"`
	IngestedAt time.Time `json:"ingestedAt"`
	Record
}

// State is the part of a table's latest record the event detector compares.
type State struct {
	UserName string `json:"userName"`
	Status   Status `json:"status"`
}

// Snapshot maps table names to their latest state.
type Snapshot map[string]State

// SnapshotOf projects history entries into a Snapshot. Entries are expected
// to already be the latest projection; if a table appears twice the entry
// with the later ingestion time (then the higher id) wins.
func SnapshotOf(entries []Entry) Snapshot {
	snap := make(Snapshot, len(entries))
	winners := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if prev, ok := winners[e.TableName]; ok && !Newer(e, prev) {
			continue
		}
		winners[e.TableName] = e
		snap[e.TableName] = State{UserName: e.UserName, Status: e.Status}
	}
	return snap
}

// Newer reports whether a was ingested after b, breaking ties by row id.
func Newer(a, b Entry) bool {
	if !a.IngestedAt.Equal(b.IngestedAt) {
		return a.IngestedAt.After(b.IngestedAt)
	}
	return a.ID > b.ID
}

// Names returns the snapshot's table names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
