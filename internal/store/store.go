// Package store keeps the per-run artifacts of the repair loop:
//
//	<root>/<run-id>/iteration_<n>.ttl
//	<root>/<run-id>/run.json
//
// Iteration artifacts are write-once. Writing the same bytes again is a
// no-op; writing different bytes to an existing artifact fails with
// ErrImmutable.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/kgrepair/internal/model"
)

var (
	// ErrImmutable is returned when an artifact exists with other content.
	ErrImmutable = errors.New("store: artifact already exists with different content")
	// ErrNotFound is returned when a run record is absent.
	ErrNotFound = errors.New("store: not found")
)

const recordFile = "run.json"

// Artifact describes one written iteration graph.
type Artifact struct {
	Path string
	CID  string
	Size int
}

// Store writes artifacts for a single run.
type Store struct {
	root  string
	runID string
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// New returns a store for runID under root. The run directory is created
// lazily on first write.
func New(root, runID string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store: root directory is required")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("store: run id is required")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return nil, fmt.Errorf("store: invalid run id %q", runID)
	}
	return &Store{root: root, runID: runID}, nil
}

// RunID returns the run identifier.
func (s *Store) RunID() string {
	return s.runID
}

// RunDir returns the directory holding this run's artifacts.
func (s *Store) RunDir() string {
	return filepath.Join(s.root, s.runID)
}

// IterationPath returns the artifact path for an iteration.
func (s *Store) IterationPath(iteration int) string {
	return filepath.Join(s.RunDir(), fmt.Sprintf("iteration_%d.ttl", iteration))
}

// WriteIteration stores the serialized graph of an iteration.
func (s *Store) WriteIteration(iteration int, data []byte) (Artifact, error) {
	if iteration < 1 {
		return Artifact{}, fmt.Errorf("store: iteration must be >= 1, got %d", iteration)
	}
	id, err := ContentID(data)
	if err != nil {
		return Artifact{}, fmt.Errorf("content id: %w", err)
	}
	path := s.IterationPath(iteration)
	if err := writeOnce(path, data); err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, CID: id.String(), Size: len(data)}, nil
}

// WriteRecord stores the run record, replacing an earlier one atomically.
func (s *Store) WriteRecord(result *model.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	if err := os.MkdirAll(s.RunDir(), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.RunDir(), ".run-*.json")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write run record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync run record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close run record: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.RunDir(), recordFile))
}

// ReadRecord loads the run record of runID under root.
func ReadRecord(root, runID string) (*model.RunResult, error) {
	data, err := os.ReadFile(filepath.Join(root, runID, recordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var result model.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode run record: %w", err)
	}
	return &result, nil
}

// ListRunIDs returns the run directories under root, sorted.
func ListRunIDs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func writeOnce(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := os.ReadFile(path)
			if rerr != nil || !bytes.Equal(existing, data) {
				return fmt.Errorf("%s: %w", path, ErrImmutable)
			}
			return nil
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
