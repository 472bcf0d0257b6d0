package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/notifier"
	"github.com/CourageResearch/imputation/internal/core/orchestrator"
)

// JobsHandler serves the JSON job operations: dispatch, status, list.
type JobsHandler struct {
	orch     *orchestrator.Orchestrator
	notifier *notifier.Notifier
	registry job.Registry
}

func NewJobsHandler(orch *orchestrator.Orchestrator, n *notifier.Notifier, registry job.Registry) *JobsHandler {
	return &JobsHandler{orch: orch, notifier: n, registry: registry}
}

type JobIDInput struct {
	ID string `path:"uuid" doc:"Job UUID"`
}

type JobBody struct {
	ID           string `json:"uuid" doc:"Job UUID"`
	Status       string `json:"status" doc:"Job status (uploaded, processing, completed, failed)"`
	OriginalName string `json:"original_filename" doc:"Client-supplied filename"`
	UploadedAt   string `json:"uploaded_at" doc:"Upload time (RFC 3339)"`
	StartedAt    string `json:"started_at,omitempty" doc:"Processing start time"`
	CompletedAt  string `json:"completed_at,omitempty" doc:"Completion time"`
	Error        string `json:"error,omitempty" doc:"Failure diagnostics"`
}

func newJobBody(j job.Job) JobBody {
	b := JobBody{
		ID:           j.ID,
		Status:       string(j.Status),
		OriginalName: j.OriginalName,
		UploadedAt:   j.UploadedAt.Format(time.RFC3339Nano),
		Error:        j.ErrorDetail,
	}
	if j.StartedAt != nil {
		b.StartedAt = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		b.CompletedAt = j.CompletedAt.Format(time.RFC3339Nano)
	}
	return b
}

type ProcessOutput struct {
	Body struct {
		Message string `json:"message" doc:"Acknowledgement"`
		ID      string `json:"uuid" doc:"Job UUID"`
	}
}

type StatusOutput struct {
	Body JobBody
}

type ListJobsOutput struct {
	Body struct {
		Jobs []JobBody `json:"jobs" doc:"All known jobs"`
	}
}

// Process dispatches the job's engine run.
func (h *JobsHandler) Process(ctx context.Context, input *JobIDInput) (*ProcessOutput, error) {
	if err := h.orch.Dispatch(ctx, input.ID); err != nil {
		return nil, mapJobError(err)
	}

	out := &ProcessOutput{}
	out.Body.Message = "Processing started"
	out.Body.ID = input.ID
	return out, nil
}

// Status returns the current job record.
func (h *JobsHandler) Status(ctx context.Context, input *JobIDInput) (*StatusOutput, error) {
	j, err := h.notifier.Peek(input.ID)
	if err != nil {
		return nil, mapJobError(err)
	}
	return &StatusOutput{Body: newJobBody(j)}, nil
}

// List returns a snapshot of every job.
func (h *JobsHandler) List(ctx context.Context, _ *struct{}) (*ListJobsOutput, error) {
	jobs := h.registry.List()
	out := &ListJobsOutput{}
	out.Body.Jobs = make([]JobBody, 0, len(jobs))
	for _, j := range jobs {
		out.Body.Jobs = append(out.Body.Jobs, newJobBody(j))
	}
	return out, nil
}

func mapJobError(err error) error {
	if errors.Is(err, job.ErrNotFound) {
		return huma.Error404NotFound("job not found")
	}
	if ise, ok := job.IsInvalidState(err); ok {
		return huma.Error409Conflict(ise.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
