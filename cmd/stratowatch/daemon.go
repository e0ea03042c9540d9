package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/stratowatch/internal/audit"
	"github.com/fentz26/stratowatch/internal/config"
	"github.com/fentz26/stratowatch/internal/connectors/localexec"
	"github.com/fentz26/stratowatch/internal/controlplane"
	"github.com/fentz26/stratowatch/internal/history"
	"github.com/fentz26/stratowatch/internal/sampler"
	"github.com/fentz26/stratowatch/internal/store"
	"github.com/fentz26/stratowatch/internal/store/mongostore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	listenAddr string
	dbPath     string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the stratowatch daemon",
	Long:  `Starts the daemon which stores instance state snapshots and serves the state history API.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

// snapshotStore is what the daemon needs from a storage backend.
type snapshotStore interface {
	history.Store
	audit.Sink
	controlplane.Pinger
	Close() error
}

func openStore(ctx context.Context, sc config.StoreConfig) (snapshotStore, error) {
	switch sc.Driver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mongostore.Connect(connectCtx, sc.MongoURI, sc.MongoDatabase)
	case config.DriverSQLite:
		return store.New(sc.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger, err := newLogger("")
	if err != nil {
		return err
	}
	defer logger.Sync()

	if listenAddr == "" {
		listenAddr = cfg.Listen
	}
	storeCfg := cfg.Store
	if dbPath != "" {
		storeCfg.Driver = config.DriverSQLite
		storeCfg.Path = dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting stratowatch daemon",
		zap.String("version", controlplane.Version),
		zap.String("store", storeCfg.Driver))

	st, err := openStore(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		logger.Info("closing store")
		if err := st.Close(); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	pdr := audit.NewPDRWriter(st)
	service := controlplane.NewService(st, pdr, logger)
	server := controlplane.NewServer(service, st, listenAddr, logger)

	if cfg.Sampler.Enabled() {
		workDir, _ := os.Getwd()
		probe := localexec.New(workDir, cfg.Sampler.Command, cfg.Sampler.Args, cfg.Sampler.Allowlist)
		sm := sampler.New(probe, service.Recorder(), pdr, &cfg.Sampler, logger)
		server.WithSampler(sm)
		sm.Start()
		defer sm.Stop()
	} else {
		logger.Info("sampler disabled; waiting for pushed snapshots")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon stopped with error", zap.Error(err))
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
