package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	base := t.TempDir()
	s, err := NewLocalStore(filepath.Join(base, "uploads"), filepath.Join(base, "results"), ".txt")
	require.NoError(t, err)
	return s
}

func TestLocalStore_Paths(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, filepath.Join(s.UploadDir(), "abc.txt"), s.InputPath("abc"))
	assert.Equal(t, filepath.Join(s.ResultsDir(), "abc"), s.OutputDir("abc"))
	assert.Equal(t, filepath.Join(s.ResultsDir(), "abc", "abc.txt.gz"), s.OutputPath("abc"))
}

func TestLocalStore_SaveInput(t *testing.T) {
	s := newTestStore(t)

	n, err := s.SaveInput("j1", strings.NewReader("rs123\trs456\n"), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	data, err := os.ReadFile(s.InputPath("j1"))
	require.NoError(t, err)
	assert.Equal(t, "rs123\trs456\n", string(data))
}

func TestLocalStore_SaveInputAtExactLimit(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveInput("j2", strings.NewReader("12345"), 5)
	require.NoError(t, err, "payload exactly at the limit is accepted")
}

func TestLocalStore_SaveInputOverLimit(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveInput("j3", strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrSizeLimit)

	_, statErr := os.Stat(s.InputPath("j3"))
	assert.True(t, os.IsNotExist(statErr), "partial file must be removed")
}

func TestLocalStore_OutputLifecycle(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.OutputExists("j4")
	require.NoError(t, err)
	assert.False(t, ok)

	dir, err := s.EnsureOutputDir("j4")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "j4.txt.gz"), []byte("gzdata"), 0o644))

	ok, err = s.OutputExists("j4")
	require.NoError(t, err)
	assert.True(t, ok)

	f, meta, err := s.OpenOutput("j4")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(6), meta.Size)
	assert.False(t, meta.ModTime.IsZero())
}

func TestLocalStore_DiskUsage(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.DiskUsage()
	require.NoError(t, err)
	assert.Positive(t, stats.Total)
}
