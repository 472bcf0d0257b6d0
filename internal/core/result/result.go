package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/storage"
)

// ErrMissingArtifact means the registry says completed but the output
// artifact is gone. This is a registry/storage inconsistency and is
// reported as a hard error, never as "not ready yet".
var ErrMissingArtifact = errors.New("output artifact missing for completed job")

// displaySuffix marks the artifact as the processed, compressed form of
// the client's original file.
const displaySuffix = ".processed.gz"

// Artifact describes a downloadable result.
type Artifact struct {
	Path        string
	DisplayName string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Service resolves output artifacts for completed jobs.
type Service struct {
	registry job.Registry
	store    *storage.LocalStore
}

func NewService(registry job.Registry, store *storage.LocalStore) *Service {
	return &Service{registry: registry, store: store}
}

// Fetch returns the result artifact for a completed job. Any status
// other than completed yields an InvalidStateError carrying the current
// status so "still processing" and "failed" stay distinguishable.
func (s *Service) Fetch(_ context.Context, id string) (Artifact, error) {
	j, err := s.registry.Get(id)
	if err != nil {
		return Artifact{}, err
	}

	if j.Status != job.StatusCompleted {
		return Artifact{}, &job.InvalidStateError{
			ID:      id,
			Current: j.Status,
			Wanted:  []job.Status{job.StatusCompleted},
		}
	}

	f, meta, err := s.store.OpenOutput(id)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s", ErrMissingArtifact, s.store.OutputPath(id))
	}
	_ = f.Close()

	return Artifact{
		Path:        s.store.OutputPath(id),
		DisplayName: j.OriginalName + displaySuffix,
		ContentType: "application/gzip",
		Size:        meta.Size,
		ModTime:     meta.ModTime,
	}, nil
}
