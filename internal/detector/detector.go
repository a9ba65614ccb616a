// Package detector turns consecutive table snapshots into announceable
// transition events.
package detector

import (
	"github.com/pps-player/tablewatch/internal/table"
)

// Diff compares the previous and current snapshots table by table.
//
// A table missing from previous is reported as started. A table whose status
// changed is reported only when it moved into ending_soon or ended; any other
// change (for example ending_soon back to playing) is ignored. Tables are
// visited in sorted name order.
func Diff(previous, current table.Snapshot) []table.Event {
	var events []table.Event
	for _, name := range current.Names() {
		curr := current[name]
		prev, seen := previous[name]
		if !seen {
			events = append(events, table.Event{TableName: name, Kind: table.EventStarted, UserName: curr.UserName})
			continue
		}
		if prev.Status == curr.Status {
			continue
		}
		switch curr.Status {
		case table.EndingSoon:
			events = append(events, table.Event{TableName: name, Kind: table.EventEndingSoon, UserName: curr.UserName})
		case table.Ended:
			events = append(events, table.Event{TableName: name, Kind: table.EventEnded, UserName: curr.UserName})
		}
	}
	return events
}
