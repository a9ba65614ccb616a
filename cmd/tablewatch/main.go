package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/pps-player/tablewatch/internal/config"
	"github.com/pps-player/tablewatch/internal/dashboard"
	"github.com/pps-player/tablewatch/internal/history"
	"github.com/pps-player/tablewatch/internal/mock"
	"github.com/pps-player/tablewatch/internal/notify"
	"github.com/pps-player/tablewatch/internal/poller"
	"github.com/pps-player/tablewatch/internal/telemetry"
	"github.com/pps-player/tablewatch/internal/ws"
)

var version = "dev"

func main() {
	configPath := flag.StringP("config", "c", "config.yaml", "Path to config file")
	envFiles := flag.StringSlice("env", []string{".env"}, "Dotenv files to load before reading credentials")
	mockMode := flag.Bool("mock", false, "Poll a built-in simulated dashboard")
	port := flag.IntP("port", "p", 0, "Override server port")
	databaseURL := flag.String("db", "", "Override history.database_url")
	interval := flag.Duration("interval", 0, "Override poll.interval")
	genToken := flag.Bool("gen-token", false, "Print a random server.auth_token and exit")
	showVersion := flag.BoolP("version", "v", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tablewatch", version)
		return
	}
	if *genToken {
		token, err := config.GenerateToken()
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := config.LoadEnv(*envFiles...); err != nil {
		log.Fatalf("Failed to load env: %v", err)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *interval > 0 {
		cfg.Poll.Interval = *interval
	}
	if *databaseURL != "" {
		cfg.History.DatabaseURL = *databaseURL
	} else if *mockMode {
		cfg.History.DatabaseURL = "memory:"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mockMode); err != nil {
		log.Fatalf("tablewatch: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, mockMode bool) error {
	var creds dashboard.Credentials
	if mockMode {
		log.Println("Starting in mock mode")
		base, c, err := startMockDashboard(ctx)
		if err != nil {
			return err
		}
		cfg.Dashboard.BaseURL = base
		creds = c
	} else {
		c, err := cfg.Credentials()
		if errors.Is(err, config.ErrNoCredentials) {
			return fmt.Errorf("%w: set store.id in the config file or %s", err, config.EnvStoreID)
		}
		if err != nil {
			return err
		}
		creds = c
	}

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		UseStdout:      cfg.Telemetry.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("[telemetry] shutdown: %v", err)
		}
	}()

	store, err := history.Open(ctx, cfg.History.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	notifier, closers, err := buildNotifier(ctx, cfg.Notify, creds.StoreID)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	client, err := dashboard.NewClient(dashboard.Options{
		BaseURL:      cfg.Dashboard.BaseURL,
		Timeout:      cfg.Dashboard.Timeout,
		ProbeTimeout: cfg.Dashboard.ProbeTimeout,
	})
	if err != nil {
		return fmt.Errorf("dashboard client: %w", err)
	}

	broadcaster := ws.NewBroadcaster(cfg.Poll.SnapshotInterval, cfg.Server.MaxConnections)
	defer broadcaster.Stop()

	p := poller.New(cfg.Poll, creds, client, store, notifier, broadcaster)
	go p.Run(ctx)

	if cfg.Server.AuthToken == "" && cfg.Server.Host != "127.0.0.1" && cfg.Server.Host != "localhost" {
		log.Printf("WARNING: server listens on %s without an auth_token", cfg.Server.Host)
	}
	server := ws.NewServer(creds.StoreID, store, broadcaster, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	if err := ws.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, server.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	log.Println("Shutting down...")
	return nil
}

// buildNotifier assembles the configured sinks. The returned closers release
// broker connections.
func buildNotifier(ctx context.Context, cfg config.NotifyConfig, storeID string) (notify.Notifier, []io.Closer, error) {
	var sinks notify.Multi
	var closers []io.Closer

	if cfg.Log {
		sinks = append(sinks, notify.LogNotifier{})
	}
	if len(cfg.Command) > 0 {
		sinks = append(sinks, &notify.CommandNotifier{Name: cfg.Command[0], Args: cfg.Command[1:]})
		log.Printf("[notify] speaking through %s", cfg.Command[0])
	}
	if cfg.Redis.Addr != "" {
		r, err := notify.NewRedisNotifier(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Channel)
		if err != nil {
			return nil, nil, fmt.Errorf("redis notifier: %w", err)
		}
		sinks = append(sinks, r)
		closers = append(closers, r)
		log.Printf("[notify] publishing to redis %s channel %s", cfg.Redis.Addr, cfg.Redis.Channel)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		k := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, storeID)
		sinks = append(sinks, k)
		closers = append(closers, k)
		log.Printf("[notify] producing to kafka topic %s", cfg.Kafka.Topic)
	}
	if len(sinks) == 0 {
		log.Println("[notify] no sinks configured, announcements are dropped")
	}
	return sinks, closers, nil
}

// startMockDashboard serves a simulated store dashboard on a loopback port
// and returns its base URL and matching credentials.
func startMockDashboard(ctx context.Context) (string, dashboard.Credentials, error) {
	creds := dashboard.Credentials{StoreID: "mock", Password: "mock", StoreIndex: "1", ZoneIndex: "1"}
	dash := mock.NewDashboard(creds.StoreID, creds.Password)
	mock.NewSimulator(dash, 6).Start(ctx, time.Second)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", dashboard.Credentials{}, fmt.Errorf("mock dashboard: %w", err)
	}
	srv := &http.Server{Handler: dash, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln)
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	base := "http://" + ln.Addr().String()
	log.Printf("[mock] dashboard at %s", base)
	return base, creds, nil
}
