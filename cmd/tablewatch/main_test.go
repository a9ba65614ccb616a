package main

import (
	"context"
	"testing"

	"github.com/pps-player/tablewatch/internal/config"
	"github.com/pps-player/tablewatch/internal/notify"
)

func TestBuildNotifier(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.NotifyConfig
		sinks   int
		closers int
	}{
		{"none", config.NotifyConfig{}, 0, 0},
		{"log", config.NotifyConfig{Log: true}, 1, 0},
		{"log and command", config.NotifyConfig{Log: true, Command: []string{"espeak-ng", "-v", "ko"}}, 2, 0},
		{"kafka", config.NotifyConfig{Kafka: config.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}, Topic: "t"}}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, closers, err := buildNotifier(context.Background(), tt.cfg, "store")
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range closers {
				defer c.Close()
			}
			multi, ok := n.(notify.Multi)
			if !ok {
				t.Fatalf("notifier is %T, want notify.Multi", n)
			}
			if len(multi) != tt.sinks || len(closers) != tt.closers {
				t.Errorf("sinks = %d closers = %d, want %d and %d", len(multi), len(closers), tt.sinks, tt.closers)
			}
		})
	}

	cmd := config.NotifyConfig{Command: []string{"espeak-ng", "-v", "ko"}}
	n, _, _ := buildNotifier(context.Background(), cmd, "store")
	c := n.(notify.Multi)[0].(*notify.CommandNotifier)
	if c.Name != "espeak-ng" || len(c.Args) != 2 || c.Args[1] != "ko" {
		t.Errorf("command notifier = %+v", c)
	}
}

func TestBuildNotifierRedisUnreachable(t *testing.T) {
	cfg := config.NotifyConfig{Redis: config.RedisConfig{Addr: "127.0.0.1:1", Channel: "c"}}
	if _, _, err := buildNotifier(context.Background(), cfg, "store"); err == nil {
		t.Error("an unreachable redis should fail startup")
	}
}
