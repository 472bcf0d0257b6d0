package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/CourageResearch/imputation/internal/core/event"
	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/storage"
)

// Kind classifies why an upload was rejected.
type Kind string

const (
	KindUnsupportedType Kind = "unsupported_type"
	KindTooLarge        Kind = "too_large"
)

// ValidationError rejects a submission before any job is created.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AsValidation returns the ValidationError wrapped in err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Service validates uploads and admits them into the registry.
type Service struct {
	registry job.Registry
	store    *storage.LocalStore
	bus      event.Bus
	maxSize  int64
	ext      string
}

func NewService(registry job.Registry, store *storage.LocalStore, bus event.Bus, maxSize int64, inputExt string) *Service {
	return &Service{
		registry: registry,
		store:    store,
		bus:      bus,
		maxSize:  maxSize,
		ext:      inputExt,
	}
}

// Submit streams the upload to storage and creates the job record. The
// registry entry is created only after the artifact write succeeded, so
// a failed write never leaves an orphan job. The input file is keyed by
// the new job's ID; the client filename is kept for presentation only.
func (s *Service) Submit(ctx context.Context, r io.Reader, filename string) (job.Job, error) {
	if !strings.HasSuffix(strings.ToLower(filename), s.ext) {
		return job.Job{}, &ValidationError{
			Kind:    KindUnsupportedType,
			Message: fmt.Sprintf("only %s files are allowed", s.ext),
		}
	}

	// The job ID doubles as the storage key, so allocate it up front and
	// register only once the bytes are durably on disk.
	id := job.NewID()

	size, err := s.store.SaveInput(id, r, s.maxSize)
	if err != nil {
		if errors.Is(err, storage.ErrSizeLimit) {
			return job.Job{}, &ValidationError{
				Kind:    KindTooLarge,
				Message: fmt.Sprintf("file too large (max %d bytes)", s.maxSize),
			}
		}
		return job.Job{}, fmt.Errorf("store upload: %w", err)
	}

	j := s.registry.Create(id, filename, s.store.InputPath(id), s.store.OutputDir(id))

	log.Info().
		Str("job_id", j.ID).
		Str("filename", filename).
		Int64("size", size).
		Msg("upload accepted")

	event.PublishJob(ctx, s.bus, event.EventJobUploaded, event.JobEvent{
		JobID:        j.ID,
		OriginalName: j.OriginalName,
		Status:       string(j.Status),
	})

	return j, nil
}
