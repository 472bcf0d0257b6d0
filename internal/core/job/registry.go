package job

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewID allocates a job identifier. IDs come from a v4 UUID so
// uniqueness is structural, not checked. The ID is allocated before the
// job record exists because the input artifact on disk is keyed by it.
func NewID() string {
	return uuid.NewString()
}

// Registry is the authoritative store of jobs. It owns all state
// transitions: every mutation goes through Transition so concurrent
// readers and the orchestrator cannot race on job fields.
type Registry interface {
	Create(id, originalName, inputPath, outputDir string) Job
	Get(id string) (Job, error)
	List() []Job
	// Transition atomically checks that the job's current status is one
	// of from, applies mutate, and stores the result. It returns
	// ErrNotFound for unknown IDs and InvalidStateError when the
	// precondition does not hold.
	Transition(id string, from []Status, mutate func(*Job)) (Job, error)
}

// MemoryRegistry is the in-process Registry implementation. Jobs are
// never deleted; retention is a concern of the surrounding deployment.
type MemoryRegistry struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]*Job)}
}

func (r *MemoryRegistry) Create(id, originalName, inputPath, outputDir string) Job {
	j := &Job{
		ID:           id,
		Status:       StatusUploaded,
		OriginalName: originalName,
		UploadedAt:   time.Now(),
		InputPath:    inputPath,
		OutputDir:    outputDir,
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.order = append(r.order, j.ID)
	r.mu.Unlock()

	return *j
}

func (r *MemoryRegistry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// List returns a snapshot of all jobs in insertion order.
func (r *MemoryRegistry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.jobs[id])
	}
	return out
}

func (r *MemoryRegistry) Transition(id string, from []Status, mutate func(*Job)) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}

	allowed := false
	for _, s := range from {
		if j.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return *j, &InvalidStateError{ID: id, Current: j.Status, Wanted: from}
	}

	mutate(j)
	return *j, nil
}
