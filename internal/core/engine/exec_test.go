package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecEngine_Success(t *testing.T) {
	eng := NewExecEngine("/bin/sh", []string{"-c", "echo processed"})

	res, err := eng.Run(context.Background(), RunSpec{JobID: "j1", InputDir: "/in", OutputDir: "/out"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "processed\n", res.Stdout)
}

func TestExecEngine_FailureCapturesBothStreams(t *testing.T) {
	eng := NewExecEngine("/bin/sh", []string{"-c", "echo partial; echo 'bad format' >&2; exit 3"})

	res, err := eng.Run(context.Background(), RunSpec{JobID: "j1"})
	require.NoError(t, err, "a nonzero exit is a result, not a run error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", res.Stdout)
	assert.Equal(t, "bad format\n", res.Stderr)
	assert.Contains(t, res.Diagnostic(), "STDOUT:\npartial\n")
	assert.Contains(t, res.Diagnostic(), "STDERR:\nbad format\n")
}

func TestExecEngine_JobParametersInEnvironment(t *testing.T) {
	eng := NewExecEngine("/bin/sh", []string{"-c", `printf '%s %s %s' "$JOB_ID" "$INPUT_MOUNT" "$OUTPUT_MOUNT"`})

	res, err := eng.Run(context.Background(), RunSpec{
		JobID:     "job-42",
		InputDir:  "/data/uploads",
		OutputDir: "/data/results/job-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-42 /data/uploads /data/results/job-42", res.Stdout)
}

func TestExecEngine_LaunchFailure(t *testing.T) {
	eng := NewExecEngine("/nonexistent/engine-binary", nil)

	_, err := eng.Run(context.Background(), RunSpec{JobID: "j1"})
	assert.Error(t, err)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	exec := NewExecEngine("/bin/true", nil)
	r.Register(exec)

	got, err := r.Get("exec")
	require.NoError(t, err)
	assert.Same(t, Engine(exec), got)

	_, err = r.Get("docker")
	assert.Error(t, err)
	assert.ElementsMatch(t, []string{"exec"}, r.List())
}
