package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type recorder struct {
	texts []string
	err   error
}

func (r *recorder) Notify(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return r.err
}

func TestMultiDeliversToEverySink(t *testing.T) {
	boom := errors.New("speaker unplugged")
	a := &recorder{err: boom}
	b := &recorder{}
	m := Multi{a, b}

	err := m.Notify(context.Background(), "1번 게임이 시작되었습니다")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want to wrap %v", err, boom)
	}
	if len(a.texts) != 1 || len(b.texts) != 1 {
		t.Errorf("sinks saw %v and %v, want one text each", a.texts, b.texts)
	}
}

func TestMultiEmpty(t *testing.T) {
	if err := (Multi{}).Notify(context.Background(), "x"); err != nil {
		t.Errorf("empty Multi returned %v", err)
	}
}

func TestCommandNotifierPassesTextLast(t *testing.T) {
	out := filepath.Join(t.TempDir(), "said.txt")
	c := &CommandNotifier{
		Name: "sh",
		Args: []string{"-c", `printf '%s' "$0" > "` + out + `"`},
	}

	if err := c.Notify(context.Background(), "3번 5분 남았습니다"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "3번 5분 남았습니다" {
		t.Errorf("command got %q", got)
	}
}

func TestCommandNotifierFailure(t *testing.T) {
	c := &CommandNotifier{Name: "sh", Args: []string{"-c", "echo no audio device >&2; exit 3"}}
	err := c.Notify(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "no audio device") {
		t.Errorf("err = %v, want command output in error", err)
	}
}

func TestCommandNotifierTimeout(t *testing.T) {
	c := &CommandNotifier{Name: "sleep", Timeout: 50 * time.Millisecond}
	start := time.Now()
	if err := c.Notify(context.Background(), "5"); err == nil {
		t.Error("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("command was not killed at the timeout")
	}
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func (f *fakePublisher) Close() error { return nil }

func TestRedisNotifierPublishesJSON(t *testing.T) {
	at := time.Date(2025, 6, 1, 14, 5, 0, 0, time.UTC)
	pub := &fakePublisher{}
	r := &RedisNotifier{client: pub, channel: "tablewatch:announce", now: func() time.Time { return at }}

	if err := r.Notify(context.Background(), "2번 게임이 종료되었습니다"); err != nil {
		t.Fatal(err)
	}
	if pub.channel != "tablewatch:announce" {
		t.Errorf("channel = %q", pub.channel)
	}
	var msg Message
	if err := json.Unmarshal(pub.payload, &msg); err != nil {
		t.Fatalf("payload %q: %v", pub.payload, err)
	}
	if msg.Text != "2번 게임이 종료되었습니다" || !msg.At.Equal(at) {
		t.Errorf("message = %+v", msg)
	}
}

func TestRedisNotifierError(t *testing.T) {
	r := &RedisNotifier{client: &fakePublisher{err: errors.New("connection refused")}, channel: "c", now: time.Now}
	if err := r.Notify(context.Background(), "x"); err == nil {
		t.Error("expected publish error")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifierWritesOneMessage(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w, key: []byte("store"), now: time.Now}

	k.Notify(context.Background(), "1번 게임이 시작되었습니다")
	k.Notify(context.Background(), "1번 5분 남았습니다")
	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages, want 2", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "store" {
		t.Errorf("key = %q", w.msgs[0].Key)
	}
	var msg Message
	json.Unmarshal(w.msgs[1].Value, &msg)
	if msg.Text != "1번 5분 남았습니다" {
		t.Errorf("second message text = %q", msg.Text)
	}

	k.Close()
	if !w.closed {
		t.Error("Close did not close the writer")
	}
}
