// Package notify delivers spoken announcements to one or more sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Notifier delivers one announcement. Implementations must be safe to call
// from the poll loop while other goroutines read their state.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Message is the payload published by the broker sinks.
type Message struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// LogNotifier writes announcements to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, text string) error {
	log.Printf("[notify] %s", text)
	return nil
}

// CommandNotifier runs an external text-to-speech program with the
// announcement as its last argument, e.g. espeak-ng -v ko <text>.
type CommandNotifier struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

func (c *CommandNotifier) Notify(ctx context.Context, text string) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), c.Args...), text)
	out, err := exec.CommandContext(ctx, c.Name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("run %s: %w: %s", c.Name, err, msg)
		}
		return fmt.Errorf("run %s: %w", c.Name, err)
	}
	return nil
}

// Multi delivers every announcement to all of its sinks, even when some
// fail, and reports the joined errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
