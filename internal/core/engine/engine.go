package engine

import (
	"context"
	"fmt"
	"sync"
)

// Engine runs the external imputation process for one job. The engine
// is a black box to the orchestrator: it reads the input artifact at
// INPUT_MOUNT/<job id><input ext> and, on success, writes the result
// under OUTPUT_MOUNT. Exit code zero signals success; any other exit
// carries diagnostics on the captured streams.
type Engine interface {
	Name() string
	Run(ctx context.Context, spec RunSpec) (Result, error)
}

// RunSpec parameterizes a single engine run.
type RunSpec struct {
	JobID     string
	InputDir  string
	OutputDir string
}

// Result is the outcome of a finished run. Stdout and Stderr are fully
// drained regardless of volume, so a chatty engine cannot stall on a
// full pipe.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Diagnostic formats the captured streams the way they are stored in a
// failed job's error detail.
func (r Result) Diagnostic() string {
	return fmt.Sprintf("STDOUT:\n%s\nSTDERR:\n%s", r.Stdout, r.Stderr)
}

// Registry holds the configured engines by name.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("engine %q not found", name)
	}
	return e, nil
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}
