package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowsmartly/avatar-worker/internal/config"
	"github.com/flowsmartly/avatar-worker/internal/fetch"
	"github.com/flowsmartly/avatar-worker/internal/handler"
	"github.com/flowsmartly/avatar-worker/internal/health"
	"github.com/flowsmartly/avatar-worker/internal/logger"
	"github.com/flowsmartly/avatar-worker/internal/publish"
	"github.com/flowsmartly/avatar-worker/internal/queue"
	"github.com/flowsmartly/avatar-worker/internal/synth"
	"github.com/flowsmartly/avatar-worker/internal/worker"
	"github.com/flowsmartly/avatar-worker/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting avatar worker",
		slog.String("model_dir", cfg.ModelDir),
		slog.String("workspace_root", cfg.WorkspaceRoot),
	)

	q, err := queue.New(cfg.RedisURL, cfg.JobQueue, cfg.ResultQueue)
	if err != nil {
		log.Error("failed to connect to queue", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer q.Close()
	log.Info("connected to job queue", slog.String("queue", cfg.JobQueue))

	workspaces, err := workspace.NewManager(cfg.WorkspaceRoot, log)
	if err != nil {
		log.Error("failed to prepare workspace root", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fetcher := fetch.New(cfg.FetchTimeout, log)

	engine := synth.NewEngine(cfg.ModelDir, []synth.Strategy{
		synth.NewMuseTalkStrategy(cfg.PythonBin, cfg.MuseTalkRoot, cfg.InferenceTimeout, log),
		synth.NewFFmpegMuxStrategy(cfg.FFmpegBin, cfg.FallbackTimeout, log),
	}, log)

	publisher := publish.New(publish.Options{
		Bucket:            cfg.Bucket,
		Endpoint:          cfg.BucketEndpointURL,
		AccessKeyID:       cfg.BucketAccessKeyID,
		SecretAccessKey:   cfg.BucketSecretAccessKey,
		FallbackEndpoint:  cfg.RunpodS3Endpoint,
		FallbackAccessKey: cfg.RunpodS3AccessKey,
		FallbackSecretKey: cfg.RunpodS3SecretKey,
	}, log)

	reportStartup(log, engine, publisher)

	h := handler.New(workspaces, fetcher, engine, publisher, log)
	w := worker.New(q, h, log)

	healthServer := &http.Server{
		Addr: ":" + cfg.HealthPort,
		Handler: health.NewRouter(func() health.Status {
			return health.Status{
				Status:                "ok",
				ModelsPresent:         engine.ModelsPresent(),
				Strategies:            engine.Capabilities(),
				CredentialsConfigured: publisher.CredentialsConfigured(),
			}
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(gctx)
	})

	g.Go(func() error {
		log.Info("health endpoint listening", slog.String("addr", healthServer.Addr))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("worker exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("worker exited")
}

// reportStartup logs the capability picture once at boot, mirroring what
// the health endpoint reports. Missing capabilities are informational:
// the worker still starts and answers jobs with structured errors.
func reportStartup(log *slog.Logger, engine *synth.Engine, publisher *publish.Publisher) {
	log.Info("model assets", slog.Bool("present", engine.ModelsPresent()))

	for name, available := range engine.Capabilities() {
		log.Info("synthesis strategy", slog.String("name", name), slog.Bool("available", available))
	}

	if publisher.CredentialsConfigured() {
		log.Info("storage credentials configured")
	} else {
		log.Warn("storage credentials not found, publishing will fail")
	}
}
