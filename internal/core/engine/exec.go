package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// ExecEngine invokes the imputation pipeline as a child process, by
// default `docker-compose run --rm imputation`. The job parameters are
// passed through the environment (JOB_ID, INPUT_MOUNT, OUTPUT_MOUNT,
// plus JOB_UUID for compatibility with the compose file).
type ExecEngine struct {
	binary string
	args   []string
}

func NewExecEngine(binary string, args []string) *ExecEngine {
	return &ExecEngine{binary: binary, args: args}
}

func (e *ExecEngine) Name() string { return "exec" }

func (e *ExecEngine) Run(ctx context.Context, spec RunSpec) (Result, error) {
	cmd := exec.CommandContext(ctx, e.binary, e.args...)
	cmd.Env = append(os.Environ(),
		"JOB_ID="+spec.JobID,
		"JOB_UUID="+spec.JobID,
		"INPUT_MOUNT="+spec.InputDir,
		"OUTPUT_MOUNT="+spec.OutputDir,
	)

	// exec.Cmd drains writer-backed streams on its own goroutines, so
	// both pipes are consumed concurrently with the process.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().
		Str("job_id", spec.JobID).
		Str("binary", e.binary).
		Strs("args", e.args).
		Msg("starting engine process")

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		// The process never produced an exit status (launch failure,
		// killed by context).
		return res, fmt.Errorf("run %s: %w", e.binary, err)
	}

	return res, nil
}
