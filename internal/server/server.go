// Package server wires the frame-side bridge, the development host and the
// one-shot call command: COMMS, optional journal DB, engine, events, HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/frame-bridge/internal/config"
	"github.com/morezero/frame-bridge/pkg/bridge"
	"github.com/morezero/frame-bridge/pkg/commsutil"
	"github.com/morezero/frame-bridge/pkg/db"
	"github.com/morezero/frame-bridge/pkg/events"
	"github.com/morezero/frame-bridge/pkg/journal"
	"github.com/morezero/frame-bridge/pkg/metrics"
)

const logPrefix = "server:server"

const metricsNamespace = "bridge"

// Run starts the frame-side bridge, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	slog.Info(fmt.Sprintf("%s - Starting frame-bridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	// Step 2: Journal DB, engine, event forwarding
	f, err := newFrame(ctx, cfg, nc)
	if err != nil {
		nc.Close()
		return err
	}

	// Step 3: HTTP server
	s := newServer(cfg, f)
	httpServer := &http.Server{Addr: cfg.ListenAddr(), Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, cfg.ListenAddr()))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Frame bridge is ready", logPrefix))

	sig := waitForSignal()
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	httpServer.Shutdown(ctx)
	f.close()
	nc.Drain()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// frame is the wired frame-side stack.
type frame struct {
	nc       *comms.Conn
	pool     *pgxpool.Pool
	repo     *db.Repository
	registry *prometheus.Registry
	engine   *bridge.Engine

	stopForward func()
}

// newFrame builds the engine over COMMS, with the journal when DATABASE_URL is set.
func newFrame(ctx context.Context, cfg *config.Config, nc *comms.Conn) (*frame, error) {
	f := &frame{nc: nc, registry: prometheus.NewRegistry()}

	if cfg.JournalEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		f.pool = pool

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrations(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				pool.Close()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		f.repo = db.NewRepository(pool)
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, call journal disabled", logPrefix))
	}

	m, err := metrics.New(f.registry, metricsNamespace)
	if err != nil {
		f.closePool()
		return nil, err
	}

	tr, err := commsutil.NewTransport(commsutil.TransportParams{
		Conn:             nc,
		LocalOrigin:      cfg.LocalOrigin,
		PublishSubject:   cfg.RequestSubject,
		SubscribeSubject: cfg.ReplySubject,
	})
	if err != nil {
		f.closePool()
		return nil, err
	}

	var j journal.Journal
	if f.repo != nil {
		j = f.repo
	}
	engine, err := bridge.New(bridge.Options{
		TargetOrigin:          cfg.TargetOrigin,
		Timeout:               cfg.Timeout,
		Source:                tr,
		Target:                tr,
		Journal:               j,
		Metrics:               m,
		HostVersionConstraint: cfg.HostVersionConstraint,
	})
	if err != nil {
		f.closePool()
		return nil, fmt.Errorf("%s - failed to create bridge: %w", logPrefix, err)
	}
	f.engine = engine

	publisher := events.NewMultiPublisher(
		&events.LogPublisher{},
		events.NewCommsPublisher(nc, &events.CommsPublisherOpts{SubjectPrefix: cfg.EventSubject}),
	)
	f.stopForward = events.Forward(engine, publisher)
	return f, nil
}

func (f *frame) close() {
	if f.stopForward != nil {
		f.stopForward()
	}
	if f.engine != nil {
		f.engine.Close()
	}
	f.closePool()
}

func (f *frame) closePool() {
	if f.pool != nil {
		f.pool.Close()
	}
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func waitForSignal() os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return <-sigCh
}
