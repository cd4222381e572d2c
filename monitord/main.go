// Command monitord wires a task polling monitor to a Redis-backed job
// handler, a Postgres audit trail, and a websocket dashboard, then runs
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/flowlane/taskmonitor/dashboard"
	"github.com/flowlane/taskmonitor/monitor"
	"github.com/flowlane/taskmonitor/session"
)

func main() {
	cfg := loadConfig()
	log.Printf("starting monitord %q (capacity=%d pollInterval=%v)", cfg.Monitor.Name, cfg.Monitor.Capacity, cfg.Monitor.PollInterval)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis at %s: %v", cfg.RedisAddr, err)
	}
	cancel()
	log.Printf("connected to redis at %s", cfg.RedisAddr)

	var auditPool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		var err error
		auditPool, err = pgxpool.New(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		log.Println("connected to postgres for task auditing")
	}

	sess := session.New(cfg.Monitor.Name, log.Default())
	mon := monitor.NewMonitor(cfg.Monitor, sess, nil)

	hub := dashboard.NewHub(mon)
	jobs := &jobServer{
		mon:         mon,
		redis:       redisClient,
		auditPool:   auditPool,
		runID:       cfg.Monitor.Name,
		faultPolicy: monitor.NewRetryOrDiePolicy(3),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/dashboard/stream", hub.ServeStream)
	mux.HandleFunc("/dashboard/snapshot", hub.ServeSnapshot)
	mux.HandleFunc("/jobs", jobs.handleSubmit)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		mon.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		sess.Shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("monitord exiting with error: %v", err)
	}
}

// config holds the env-var-overridable settings this process wires into
// a monitor.Config, following main.go's os.Getenv + fmt.Sscanf override
// pattern.
type config struct {
	Monitor     monitor.Config
	RedisAddr   string
	PostgresURL string
	HTTPAddr    string
}

func loadConfig() config {
	name := os.Getenv("MONITOR_NAME")
	if name == "" {
		name = "default"
	}

	capacity := 10
	if capStr := os.Getenv("MONITOR_CAPACITY"); capStr != "" {
		fmt.Sscanf(capStr, "%d", &capacity)
	}

	pollInterval := time.Second
	if intervalStr := os.Getenv("MONITOR_POLL_INTERVAL_MS"); intervalStr != "" {
		var ms int
		fmt.Sscanf(intervalStr, "%d", &ms)
		if ms > 0 {
			pollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return config{
		Monitor: monitor.Config{
			Name:         name,
			Capacity:     monitor.Capacity(capacity),
			PollInterval: pollInterval,
			DumpInterval: monitor.DefaultDumpInterval,
			Logger:       log.Default(),
		},
		RedisAddr:   redisAddr,
		PostgresURL: os.Getenv("POSTGRES_URL"),
		HTTPAddr:    httpAddr,
	}
}
