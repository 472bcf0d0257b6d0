package job

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(r *MemoryRegistry) Job {
	id := NewID()
	return r.Create(id, "sample.txt", "/uploads/"+id+".txt", "/results/"+id)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewMemoryRegistry()
	j := newTestJob(r)

	require.NotEmpty(t, j.ID)
	assert.Equal(t, StatusUploaded, j.Status)
	assert.Equal(t, "sample.txt", j.OriginalName)
	assert.False(t, j.UploadedAt.IsZero())
	assert.Nil(t, j.StartedAt)
	assert.Empty(t, j.ErrorDetail)

	got, err := r.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewMemoryRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_UniqueIDsUnderConcurrency(t *testing.T) {
	r := NewMemoryRegistry()

	const n = 200
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- newTestJob(r).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate job id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, r.List(), n)
}

func TestRegistry_TransitionHappyPath(t *testing.T) {
	r := NewMemoryRegistry()
	j := newTestJob(r)

	now := time.Now()
	updated, err := r.Transition(j.ID, []Status{StatusUploaded}, func(j *Job) {
		j.Status = StatusProcessing
		j.StartedAt = &now
	})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.False(t, updated.StartedAt.Before(updated.UploadedAt))
}

func TestRegistry_TransitionPreconditionFailed(t *testing.T) {
	r := NewMemoryRegistry()
	j := newTestJob(r)

	_, err := r.Transition(j.ID, []Status{StatusProcessing}, func(j *Job) {
		j.Status = StatusCompleted
	})
	ise, ok := IsInvalidState(err)
	require.True(t, ok)
	assert.Equal(t, StatusUploaded, ise.Current)

	// The rejected transition must not have touched the job.
	got, err := r.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, got.Status)
}

func TestRegistry_TransitionUnknownJob(t *testing.T) {
	r := NewMemoryRegistry()
	_, err := r.Transition("nope", []Status{StatusUploaded}, func(j *Job) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_OnlyOneConcurrentDispatchWins(t *testing.T) {
	r := NewMemoryRegistry()
	j := newTestJob(r)

	const n = 50
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Transition(j.ID, []Status{StatusUploaded}, func(j *Job) {
				j.Status = StatusProcessing
			})
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one transition out of uploaded may succeed")
}

func TestRegistry_ListReturnsSnapshots(t *testing.T) {
	r := NewMemoryRegistry()
	j := newTestJob(r)

	list := r.List()
	require.Len(t, list, 1)
	list[0].Status = StatusFailed

	got, err := r.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, got.Status, "mutating a snapshot must not affect the registry")
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusUploaded.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
