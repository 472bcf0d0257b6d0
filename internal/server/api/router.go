package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/CourageResearch/imputation/internal/core/intake"
	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/notifier"
	"github.com/CourageResearch/imputation/internal/core/orchestrator"
	"github.com/CourageResearch/imputation/internal/core/result"
	"github.com/CourageResearch/imputation/internal/server/api/handlers"
)

type RouterConfig struct {
	Registry    job.Registry
	Intake      *intake.Service
	Orch        *orchestrator.Orchestrator
	Notifier    *notifier.Notifier
	Results     *result.Service
	CORSOrigins []string
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	group := e.Group("/api")
	humaCfg := huma.DefaultConfig("Genome Imputation API", "1.0.0")
	humaCfg.Servers = []*huma.Server{{URL: "/api"}}
	humaCfg.Info.Description = "Upload a genome file, run the imputation engine, track and download the result"

	hapi := humaecho.NewWithGroup(e, group, humaCfg)

	jobsHandler := handlers.NewJobsHandler(cfg.Orch, cfg.Notifier, cfg.Registry)
	huma.Register(hapi, huma.Operation{
		OperationID: "process-job",
		Method:      http.MethodPost,
		Path:        "/process/{uuid}",
		Summary:     "Start processing an uploaded file",
		Tags:        []string{"Jobs"},
	}, jobsHandler.Process)

	huma.Register(hapi, huma.Operation{
		OperationID: "job-status",
		Method:      http.MethodGet,
		Path:        "/status/{uuid}",
		Summary:     "Get the status of a job",
		Tags:        []string{"Jobs"},
	}, jobsHandler.Status)

	huma.Register(hapi, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/files",
		Summary:     "List all jobs",
		Tags:        []string{"Jobs"},
	}, jobsHandler.List)

	// Byte-stream routes bypass huma: multipart in, artifact and SSE out.
	transfer := handlers.NewTransferHandler(cfg.Intake, cfg.Results)
	e.POST("/api/upload", transfer.Upload)
	e.GET("/api/download/:uuid", transfer.Download)

	events := handlers.NewEventsHandler(cfg.Notifier)
	e.GET("/api/events/:uuid", events.Stream)
}
