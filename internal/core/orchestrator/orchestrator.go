package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/CourageResearch/imputation/internal/core/engine"
	"github.com/CourageResearch/imputation/internal/core/event"
	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/storage"
)

// Orchestrator launches the external imputation engine for uploaded
// jobs and drives each job to a terminal status. The number of
// simultaneous engine runs is capped by a weighted semaphore; dispatch
// itself never blocks on the cap, only the supervised run does.
type Orchestrator struct {
	registry job.Registry
	store    *storage.LocalStore
	engine   engine.Engine
	bus      event.Bus
	slots    *semaphore.Weighted

	// baseCtx outlives request contexts: a run keeps going after the
	// dispatching HTTP request ends, and stops only on shutdown.
	baseCtx context.Context
}

func New(baseCtx context.Context, registry job.Registry, store *storage.LocalStore, eng engine.Engine, bus event.Bus, maxConcurrent int64) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		registry: registry,
		store:    store,
		engine:   eng,
		bus:      bus,
		slots:    semaphore.NewWeighted(maxConcurrent),
		baseCtx:  baseCtx,
	}
}

// Dispatch transitions the job from uploaded to processing and launches
// its engine run in the background. The transition happens before
// anything is spawned: a concurrent second Dispatch for the same ID
// observes processing (or a terminal status) and is rejected without
// ever starting a second run.
func (o *Orchestrator) Dispatch(ctx context.Context, id string) error {
	j, err := o.registry.Transition(id, []job.Status{job.StatusUploaded}, func(j *job.Job) {
		now := time.Now()
		j.Status = job.StatusProcessing
		j.StartedAt = &now
	})
	if err != nil {
		return err
	}

	log.Info().Str("job_id", id).Str("engine", o.engine.Name()).Msg("job dispatched")
	event.PublishJob(ctx, o.bus, event.EventJobDispatched, event.JobEvent{
		JobID:        j.ID,
		OriginalName: j.OriginalName,
		Status:       string(j.Status),
	})

	go o.supervise(j)
	return nil
}

// supervise runs the engine for one job and guarantees a terminal
// transition on every path: engine success, engine failure, or any
// internal fault while preparing or running. A job must never be left
// in processing by an exiting supervision goroutine.
func (o *Orchestrator) supervise(j job.Job) {
	ctx := o.baseCtx

	if err := o.slots.Acquire(ctx, 1); err != nil {
		o.fail(j.ID, fmt.Sprintf("acquire run slot: %v", err))
		return
	}
	defer o.slots.Release(1)

	outputDir, err := o.store.EnsureOutputDir(j.ID)
	if err != nil {
		o.fail(j.ID, err.Error())
		return
	}

	res, err := o.engine.Run(ctx, engine.RunSpec{
		JobID:     j.ID,
		InputDir:  o.store.UploadDir(),
		OutputDir: outputDir,
	})
	if err != nil {
		o.fail(j.ID, err.Error())
		return
	}

	if res.ExitCode != 0 {
		log.Warn().
			Str("job_id", j.ID).
			Int("exit_code", res.ExitCode).
			Str("stderr", res.Stderr).
			Msg("engine run failed")
		o.fail(j.ID, res.Diagnostic())
		return
	}

	o.complete(j.ID)
}

func (o *Orchestrator) complete(id string) {
	j, err := o.registry.Transition(id, []job.Status{job.StatusProcessing}, func(j *job.Job) {
		now := time.Now()
		j.Status = job.StatusCompleted
		j.CompletedAt = &now
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("completion transition rejected")
		return
	}

	log.Info().Str("job_id", id).Msg("job completed")
	event.PublishJob(o.baseCtx, o.bus, event.EventJobCompleted, event.JobEvent{
		JobID:        j.ID,
		OriginalName: j.OriginalName,
		Status:       string(j.Status),
	})
}

func (o *Orchestrator) fail(id, detail string) {
	j, err := o.registry.Transition(id, []job.Status{job.StatusProcessing}, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.ErrorDetail = detail
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("failure transition rejected")
		return
	}

	event.PublishJob(o.baseCtx, o.bus, event.EventJobFailed, event.JobEvent{
		JobID:        j.ID,
		OriginalName: j.OriginalName,
		Status:       string(j.Status),
		Error:        detail,
	})
}
