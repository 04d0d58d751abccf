package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/cmd/server"
	"github.com/rootline/clusterwatch/internal/checkpoint"
	"github.com/rootline/clusterwatch/internal/cluster"
	"github.com/rootline/clusterwatch/internal/config"
	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/sink"
	"github.com/rootline/clusterwatch/internal/statecache"
	"github.com/rootline/clusterwatch/internal/types"
	"github.com/rootline/clusterwatch/internal/watch"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "clusterwatch",
		Short: "Kubernetes change connector for the rootline timeline",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(runCmd(), onceCmd(), resyncCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run sync cycles on an interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			go func() {
				if err := app.admin.Start(app.cfg.AdminAddr); err != nil {
					app.log.Error().Err(err).Msg("admin server error")
				}
			}()

			if err := cluster.TestConnection(ctx, app.client); err != nil {
				return err
			}

			app.log.Info().
				Str("cluster", app.conn.Cluster).
				Dur("interval", app.cfg.SyncInterval).
				Msg("clusterwatch starting")

			app.syncCycle(ctx)

			ticker := time.NewTicker(app.cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					app.log.Info().Msg("shutting down")
					return nil
				case <-ticker.C:
					app.syncCycle(ctx)
				}
			}
		},
	}
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single sync cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := cluster.TestConnection(ctx, app.client); err != nil {
				return err
			}
			app.syncCycle(ctx)
			return nil
		},
	}
}

func resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Clear stored checkpoints so the next cycle starts from current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup()
			if err != nil {
				return err
			}
			defer app.close()

			ctx := context.Background()
			for _, h := range app.handlers {
				if err := app.checkpoints.Clear(ctx, app.conn.ID, string(h.Kind())); err != nil {
					return fmt.Errorf("failed to clear checkpoint for %s: %w", h.Kind(), err)
				}
				app.log.Info().Str("kind", string(h.Kind())).Msg("checkpoint cleared")
			}
			return nil
		},
	}
}

type app struct {
	cfg         *config.Config
	conn        types.ClusterConnection
	client      kubernetes.Interface
	handlers    []kinds.Handler
	checkpoints checkpoint.Store
	eventSink   sink.Sink
	cache       *statecache.Cache
	coordinator *watch.Coordinator
	admin       *server.AdminServer
	db          *sql.DB
	log         zerolog.Logger
}

func setup() (*app, error) {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	conn := cfg.Connection()
	handlers, err := kinds.ForNames(conn.Kinds)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, conn: conn, handlers: handlers, log: log}

	// Postgres when configured; in-memory stores keep the connector
	// usable for local runs without durability.
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		a.db = db

		a.checkpoints, err = checkpoint.NewPostgresStore(db)
		if err != nil {
			return nil, err
		}
		a.eventSink, err = sink.NewPostgresSink(db, conn.ID)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to PostgreSQL")
	} else {
		log.Warn().Msg("DATABASE_URL not set, checkpoints and events are not durable")
		a.checkpoints = checkpoint.NewMemoryStore()
		a.eventSink = sink.NewMemorySink()
	}

	a.client, err = cluster.NewClientset(conn)
	if err != nil {
		return nil, err
	}

	a.cache = statecache.New()
	a.coordinator = watch.NewCoordinator(conn, handlers, a.client, a.cache,
		a.checkpoints, a.eventSink, watch.SessionConfig{SessionTimeout: cfg.SessionTimeout}, log)

	a.admin = server.New(a.ready, log)
	return a, nil
}

func (a *app) ready() error {
	if a.db != nil {
		return a.db.Ping()
	}
	return nil
}

// syncCycle bounds one coordinator invocation. The deadline is what
// eventually drains every session and joins the cycle.
func (a *app) syncCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, a.cfg.CycleTimeout)
	defer cancel()

	start := time.Now()
	results := a.coordinator.Sync(cycleCtx)

	var observed, emitted int
	for _, r := range results {
		observed += r.Observed
		emitted += r.Emitted
	}
	a.log.Info().
		Int("observed", observed).
		Int("emitted", emitted).
		Dur("duration", time.Since(start)).
		Msg("sync cycle complete")
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
