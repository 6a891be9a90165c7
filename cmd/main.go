package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/basaa-mt/translator-api/internal/cache"
	"github.com/basaa-mt/translator-api/internal/config"
	"github.com/basaa-mt/translator-api/internal/corrections"
	"github.com/basaa-mt/translator-api/internal/httpapi"
	"github.com/basaa-mt/translator-api/internal/model"
	"github.com/basaa-mt/translator-api/internal/persistence"
	"github.com/basaa-mt/translator-api/internal/translator"
	"github.com/basaa-mt/translator-api/pkg/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(cfg.Service.LogLevel)
	if cfg.Service.LogFile != "" {
		fileLogger, err := log.NewFileLogger(cfg.Service.LogFile, cfg.Service.LogLevel)
		if err != nil {
			log.Fatal("Failed to open log file: %v", err)
		}
		defer fileLogger.Close()
		log.SetLogger(fileLogger.Logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, err := model.NewHTTPAdapter(&model.Config{
		ModelPath: cfg.Model.Path,
		ServerURL: cfg.Model.ServerURL,
		APIKey:    cfg.Model.APIKey,
		Timeout:   cfg.Model.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to create model adapter: %v", err)
	}
	if err := adapter.Load(ctx); err != nil {
		log.Warn("Serving without a loaded model: %v", err)
	}

	var (
		logOpts []corrections.Option
		srvOpts = []httpapi.Option{
			httpapi.WithVersion(cfg.Service.Version),
			httpapi.WithTitle(cfg.Service.Title),
			httpapi.WithProxyPrefix(cfg.HTTP.ProxyPrefix),
		}
	)
	if cfg.Corrections.DBPath != "" {
		store, err := persistence.NewSQLiteStore(cfg.Corrections.DBPath)
		if err != nil {
			log.Error("Correction database disabled: %v", err)
		} else {
			defer store.Close()
			logOpts = append(logOpts, corrections.WithMirror(store))
			srvOpts = append(srvOpts, httpapi.WithCorrectionCounter(store))
		}
	}
	correctionLog := corrections.NewLog(cfg.Corrections.LogPath, logOpts...)

	trans := translator.New(adapter,
		translator.WithCache(cache.NewLRU[translator.Key, string](cfg.Cache.Capacity)),
		translator.WithMaxCachedLen(cfg.Cache.MaxTextLen),
	)

	c := cron.New()
	prober := model.NewProber(adapter, cfg.Model.ProbeCron, c)

	srvOpts = append(srvOpts, httpapi.WithProbe(prober))
	srv := httpapi.NewServer(trans, correctionLog, adapter, srvOpts...)

	if err := runWithComponents(ctx, cfg, prober, c, srv); err != nil {
		log.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}

// runWithComponents starts the scheduler and HTTP server and blocks until ctx
// is cancelled or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, c cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
