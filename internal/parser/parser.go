// Package parser extracts per-table status records from the dashboard's
// occupancy fragment.
//
// The fragment is a list of "cards", one per occupied table. Each card holds
// the table name in a bold element and a run of spans alternating between
// labels and values: user name, start time and end time sit at spans 1, 3
// and 5. The markup is not under our control, so every card is parsed on its
// own and a broken card is skipped rather than failing the batch.
package parser

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pps-player/tablewatch/internal/table"
)

// cardClasses identifies a table card; an element must carry all of them.
var cardClasses = []string{"tr-fx-nw", "tr-fxstr", "tr-fx-c", "p-20-c"}

const (
	nameClass = "bold"

	userSpan  = 1
	startSpan = 3
	endSpan   = 5
)

var (
	errNoTableName = errors.New("table name element missing")
	errMissingSpan = errors.New("span missing")
)

// CardError describes a card that could not be turned into a record.
type CardError struct {
	Index int    // position of the card in the fragment
	Table string // table name if it was read before the failure
	Err   error
}

func (e *CardError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("card %d (%s): %v", e.Index, e.Table, e.Err)
	}
	return fmt.Sprintf("card %d: %v", e.Index, e.Err)
}

func (e *CardError) Unwrap() error { return e.Err }

type options struct {
	onError func(*CardError)
}

// Option customises Parse.
type Option func(*options)

// OnError routes per-card failures to fn instead of the default logger.
func OnError(fn func(*CardError)) Option {
	return func(o *options) { o.onError = fn }
}

func logCardError(err *CardError) {
	log.Printf("[parser] skipping %v", err)
}

// Parse lazily yields one record per well-formed card in fragment. Times on
// the dashboard carry no year, so they are placed in now's year; a session
// that crosses midnight on December 31st comes out a year off. storeID is
// only used to label failures in logs.
func Parse(fragment, storeID string, now time.Time, opts ...Option) iter.Seq[table.Record] {
	o := options{onError: logCardError}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(table.Record) bool) {
		if strings.TrimSpace(fragment) == "" {
			return
		}
		doc, err := html.Parse(strings.NewReader(fragment))
		if err != nil {
			o.onError(&CardError{Index: -1, Err: fmt.Errorf("store %s: parse fragment: %w", storeID, err)})
			return
		}
		idx := 0
		for card := range cards(doc) {
			rec, err := parseCard(card, now)
			i := idx
			idx++
			if err != nil {
				err.Index = i
				o.onError(err)
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// ParseAll collects every record Parse yields.
func ParseAll(fragment, storeID string, now time.Time, opts ...Option) []table.Record {
	var out []table.Record
	for rec := range Parse(fragment, storeID, now, opts...) {
		out = append(out, rec)
	}
	return out
}

func parseCard(card *html.Node, now time.Time) (table.Record, *CardError) {
	nameNode := findFirst(card, func(n *html.Node) bool { return hasClass(n, nameClass) })
	if nameNode == nil {
		return table.Record{}, &CardError{Err: errNoTableName}
	}
	rec := table.Record{TableName: textOf(nameNode)}
	if rec.TableName == "" {
		return table.Record{}, &CardError{Err: errNoTableName}
	}

	spans := findAll(card, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "span" })
	if len(spans) <= endSpan {
		return table.Record{}, &CardError{Table: rec.TableName, Err: fmt.Errorf("%w: have %d, need %d", errMissingSpan, len(spans), endSpan+1)}
	}
	rec.UserName = textOf(spans[userSpan])

	start, err := parseClock(textOf(spans[startSpan]), now)
	if err != nil {
		return table.Record{}, &CardError{Table: rec.TableName, Err: fmt.Errorf("start time: %w", err)}
	}
	end, err := parseClock(textOf(spans[endSpan]), now)
	if err != nil {
		return table.Record{}, &CardError{Table: rec.TableName, Err: fmt.Errorf("end time: %w", err)}
	}

	rec.StartTime = start
	rec.EndTime = end
	rec.RemainingSeconds = int64(end.Sub(now) / time.Second)
	rec.Status = table.StatusFor(rec.RemainingSeconds)
	return rec, nil
}

// parseClock reads "MM.DD HH:MM" in now's year, or a bare "HH:MM" on now's
// date, in now's location.
func parseClock(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	loc := now.Location()
	if t, err := time.ParseInLocation("2006.1.2 15:04", fmt.Sprintf("%d.%s", now.Year(), s), loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised time %q", s)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
