package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/CourageResearch/imputation/internal/config"
	"github.com/CourageResearch/imputation/internal/core/engine"
	"github.com/CourageResearch/imputation/internal/core/event"
	"github.com/CourageResearch/imputation/internal/core/intake"
	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/notifier"
	"github.com/CourageResearch/imputation/internal/core/orchestrator"
	"github.com/CourageResearch/imputation/internal/core/result"
	"github.com/CourageResearch/imputation/internal/core/storage"
	"github.com/CourageResearch/imputation/internal/server/api"
)

// Run wires the service together and blocks until SIGINT/SIGTERM.
func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.ResultsDir, cfg.Intake.InputExtension)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	bus := event.NewBus()
	registry := job.NewMemoryRegistry()

	engines := engine.NewRegistry()
	engines.Register(engine.NewExecEngine(cfg.Engine.Exec.Binary, cfg.Engine.Exec.Args))
	if cfg.Engine.Kind == "docker" {
		dockerEng, err := engine.NewDockerEngine(
			cfg.Engine.Docker.Image,
			cfg.Engine.Docker.InputMount,
			cfg.Engine.Docker.OutputMount,
		)
		if err != nil {
			return fmt.Errorf("docker engine: %w", err)
		}
		engines.Register(dockerEng)
	}
	activeEngine, err := engines.Get(cfg.Engine.Kind)
	if err != nil {
		return err
	}
	log.Info().Str("engine", activeEngine.Name()).Strs("available", engines.List()).Msg("engine selected")

	// Engine runs must survive the lifetime of any single HTTP request;
	// runCtx is cancelled only on shutdown.
	runCtx, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()

	orch := orchestrator.New(runCtx, registry, store, activeEngine, bus, int64(cfg.Engine.MaxConcurrent))
	intakeSvc := intake.NewService(registry, store, bus, cfg.Intake.MaxUploadSize, cfg.Intake.InputExtension)
	notify := notifier.New(registry, cfg.NotifierInterval(), cfg.Notifier.CloseOnTerminal)
	results := result.NewService(registry, store)

	subscribeLifecycleLogging(bus)

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		Registry:    registry,
		Intake:      intakeSvc,
		Orch:        orch,
		Notifier:    notify,
		Results:     results,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	stopRuns()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}

// subscribeLifecycleLogging mirrors job lifecycle events into the log
// so operators can follow a job without polling the API.
func subscribeLifecycleLogging(bus event.Bus) {
	bus.Subscribe(func(_ context.Context, e event.Event) error {
		payload, ok := e.Payload.(event.JobEvent)
		if !ok {
			return nil
		}
		evt := log.Info()
		if e.Type == event.EventJobFailed {
			evt = log.Warn()
		}
		evt.Str("job_id", payload.JobID).
			Str("filename", payload.OriginalName).
			Str("status", payload.Status).
			Str("event", string(e.Type)).
			Msg("job lifecycle")
		return nil
	}, event.EventJobUploaded, event.EventJobDispatched, event.EventJobCompleted, event.EventJobFailed)
}
