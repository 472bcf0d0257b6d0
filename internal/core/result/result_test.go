package result

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/storage"
)

func newTestService(t *testing.T) (*Service, *job.MemoryRegistry, *storage.LocalStore) {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewLocalStore(filepath.Join(base, "uploads"), filepath.Join(base, "results"), ".txt")
	require.NoError(t, err)
	registry := job.NewMemoryRegistry()
	return NewService(registry, store), registry, store
}

func createWithStatus(t *testing.T, r *job.MemoryRegistry, status job.Status) job.Job {
	t.Helper()
	id := job.NewID()
	j := r.Create(id, "genome.txt", "/uploads/"+id+".txt", "/results/"+id)
	if status == job.StatusUploaded {
		return j
	}
	j2, err := r.Transition(id, []job.Status{job.StatusUploaded}, func(j *job.Job) {
		now := time.Now()
		j.Status = job.StatusProcessing
		j.StartedAt = &now
	})
	require.NoError(t, err)
	if status == job.StatusProcessing {
		return j2
	}
	j3, err := r.Transition(id, []job.Status{job.StatusProcessing}, func(j *job.Job) {
		now := time.Now()
		j.Status = status
		if status == job.StatusCompleted {
			j.CompletedAt = &now
		} else {
			j.ErrorDetail = "engine exploded"
		}
	})
	require.NoError(t, err)
	return j3
}

func TestFetch_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Fetch(context.Background(), "nope")
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestFetch_InvalidStateForNonCompleted(t *testing.T) {
	svc, registry, _ := newTestService(t)

	for _, status := range []job.Status{job.StatusUploaded, job.StatusProcessing, job.StatusFailed} {
		j := createWithStatus(t, registry, status)
		_, err := svc.Fetch(context.Background(), j.ID)
		ise, ok := job.IsInvalidState(err)
		require.True(t, ok, "status %s must be invalid for fetch", status)
		assert.Equal(t, status, ise.Current, "error must name the current status")
	}
}

func TestFetch_MissingArtifact(t *testing.T) {
	svc, registry, _ := newTestService(t)

	j := createWithStatus(t, registry, job.StatusCompleted)
	_, err := svc.Fetch(context.Background(), j.ID)
	assert.ErrorIs(t, err, ErrMissingArtifact)
}

func TestFetch_Completed(t *testing.T) {
	svc, registry, store := newTestService(t)

	j := createWithStatus(t, registry, job.StatusCompleted)
	dir, err := store.EnsureOutputDir(j.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, j.ID+".txt.gz"), []byte("gzdata"), 0o644))

	art, err := svc.Fetch(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.OutputPath(j.ID), art.Path)
	assert.Equal(t, "genome.txt.processed.gz", art.DisplayName)
	assert.Equal(t, "application/gzip", art.ContentType)
	assert.Equal(t, int64(6), art.Size)
}
