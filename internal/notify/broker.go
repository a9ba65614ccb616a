package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisNotifier publishes each announcement as a JSON Message on a Redis
// channel, for speakers subscribed elsewhere.
type RedisNotifier struct {
	client  publisher
	channel string
	now     func() time.Time
}

// NewRedisNotifier connects to addr and checks the server answers.
func NewRedisNotifier(ctx context.Context, addr, password, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisNotifier{client: client, channel: channel, now: time.Now}, nil
}

func (r *RedisNotifier) Notify(ctx context.Context, text string) error {
	data, err := json.Marshal(Message{Text: text, At: r.now()})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisNotifier) Close() error { return r.client.Close() }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes one Kafka message per announcement, keyed by store.
type KafkaNotifier struct {
	writer messageWriter
	key    []byte
	now    func() time.Time
}

func NewKafkaNotifier(brokers []string, topic, storeID string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &KafkaNotifier{writer: w, key: []byte(storeID), now: time.Now}
}

func (k *KafkaNotifier) Notify(ctx context.Context, text string) error {
	at := k.now()
	data, err := json.Marshal(Message{Text: text, At: at})
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: k.key, Value: data, Time: at}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error { return k.writer.Close() }
