package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrSizeLimit is returned by SaveInput when the reader yields more
// bytes than the configured limit. The partial file is removed.
var ErrSizeLimit = errors.New("input exceeds size limit")

type FileMetadata struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

type DiskStats struct {
	Total     int64
	Used      int64
	Available int64
}

// LocalStore keeps one input artifact per job under uploadDir and one
// result directory per job under resultsDir. Paths are derived from the
// job ID only, so concurrent jobs never share files.
type LocalStore struct {
	uploadDir  string
	resultsDir string
	inputExt   string
	outputExt  string
}

func NewLocalStore(uploadDir, resultsDir, inputExt string) (*LocalStore, error) {
	absUpload, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	absResults, err := filepath.Abs(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve results dir: %w", err)
	}

	for _, dir := range []string{absUpload, absResults} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return &LocalStore{
		uploadDir:  absUpload,
		resultsDir: absResults,
		inputExt:   inputExt,
		outputExt:  ".gz",
	}, nil
}

func (s *LocalStore) UploadDir() string  { return s.uploadDir }
func (s *LocalStore) ResultsDir() string { return s.resultsDir }

// InputPath is the location the engine reads from: <uploads>/<id><ext>.
func (s *LocalStore) InputPath(jobID string) string {
	return filepath.Join(s.uploadDir, jobID+s.inputExt)
}

// OutputDir is the per-job directory the engine writes into.
func (s *LocalStore) OutputDir(jobID string) string {
	return filepath.Join(s.resultsDir, jobID)
}

// OutputPath is the artifact the engine produces on success:
// <results>/<id>/<id><ext>.gz.
func (s *LocalStore) OutputPath(jobID string) string {
	return filepath.Join(s.OutputDir(jobID), jobID+s.inputExt+s.outputExt)
}

// SaveInput streams r to the job's input path, enforcing limit as bytes
// arrive so an oversized upload never gets fully buffered or kept. On
// any error the partial file is removed; the caller can rely on the
// artifact existing iff SaveInput returned nil.
func (s *LocalStore) SaveInput(jobID string, r io.Reader, limit int64) (int64, error) {
	path := s.InputPath(jobID)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create input file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit))
	if err == nil && n == limit {
		// Distinguish "exactly limit" from "over limit" with one more read.
		var extra [1]byte
		if m, _ := r.Read(extra[:]); m > 0 {
			err = ErrSizeLimit
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close input file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return n, err
	}
	return n, nil
}

// EnsureOutputDir creates the per-job results directory.
func (s *LocalStore) EnsureOutputDir(jobID string) (string, error) {
	dir := s.OutputDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// OpenOutput opens the job's result artifact for reading.
func (s *LocalStore) OpenOutput(jobID string) (*os.File, FileMetadata, error) {
	path := s.OutputPath(jobID)

	f, err := os.Open(path)
	if err != nil {
		return nil, FileMetadata{}, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, FileMetadata{}, fmt.Errorf("stat output: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return f, FileMetadata{
		Size:        stat.Size(),
		ContentType: contentType,
		ModTime:     stat.ModTime(),
	}, nil
}

// OutputExists reports whether the result artifact is present.
func (s *LocalStore) OutputExists(jobID string) (bool, error) {
	_, err := os.Stat(s.OutputPath(jobID))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// DiskUsage reports filesystem stats for the results directory.
func (s *LocalStore) DiskUsage() (DiskStats, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.resultsDir, &stat); err != nil {
		return DiskStats{}, err
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	available := int64(stat.Bavail) * int64(stat.Bsize)
	return DiskStats{Total: total, Used: total - available, Available: available}, nil
}
