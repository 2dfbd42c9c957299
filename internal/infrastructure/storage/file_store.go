// Package storage persists run state as flat files: an append-only seen
// fingerprint set, an open-run marker, and a JSONL run log.
package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"newsreel/internal/domain"
	"newsreel/internal/ports"
)

const (
	fingerprintsFile = "seen_fingerprints.json"
	runLogFile       = "runs.jsonl"
	openRunFile      = "current_run.json"
)

// FileStore implements ports.StateStore on a single state directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ ports.StateStore = (*FileStore)(nil)

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadFingerprints reads the persisted seen set. A missing file means a
// first run and yields an empty set.
func (s *FileStore) LoadFingerprints(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFingerprintsLocked()
}

func (s *FileStore) loadFingerprintsLocked() (map[string]struct{}, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fingerprintsFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fingerprints: %w", err)
	}

	var prints []string
	if err := json.Unmarshal(data, &prints); err != nil {
		return nil, fmt.Errorf("parse fingerprints: %w", err)
	}

	seen := make(map[string]struct{}, len(prints))
	for _, fp := range prints {
		seen[fp] = struct{}{}
	}
	return seen, nil
}

// AddFingerprints unions the given fingerprints into the persisted set.
// The set only grows; retention is an out-of-band concern.
func (s *FileStore) AddFingerprints(ctx context.Context, prints []string) error {
	if len(prints) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen, err := s.loadFingerprintsLocked()
	if err != nil {
		return err
	}
	for _, fp := range prints {
		seen[fp] = struct{}{}
	}

	all := make([]string, 0, len(seen))
	for fp := range seen {
		all = append(all, fp)
	}
	sort.Strings(all)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprints: %w", err)
	}
	return s.writeAtomic(fingerprintsFile, data)
}

// BeginRun writes the open-run marker, refusing when one already exists.
func (s *FileStore) BeginRun(ctx context.Context, rec domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, openRunFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("run marker %s exists: %w", path, domain.ErrRunInProgress)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat run marker: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run marker: %w", err)
	}
	return s.writeAtomic(openRunFile, data)
}

// FinishRun appends the finalized record to the run log and clears the
// open-run marker.
func (s *FileStore) FinishRun(ctx context.Context, rec domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, runLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append run record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}

	if err := os.Remove(filepath.Join(s.dir, openRunFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear run marker: %w", err)
	}
	return nil
}

// Totals folds the run log into cumulative counters. Reading never mutates
// any state file.
func (s *FileStore) Totals(ctx context.Context) (domain.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totals domain.Totals

	f, err := os.Open(filepath.Join(s.dir, runLogFile))
	if errors.Is(err, os.ErrNotExist) {
		return totals, nil
	}
	if err != nil {
		return totals, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.RunRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return totals, fmt.Errorf("parse run record: %w", err)
		}
		totals.Runs++
		totals.ItemsScraped += rec.ItemsScraped
		totals.ItemsAccepted += rec.ItemsAccepted
		totals.ItemsRendered += rec.ItemsRendered
		totals.ItemsFailed += len(rec.Failures)
	}
	if err := scanner.Err(); err != nil {
		return totals, fmt.Errorf("scan run log: %w", err)
	}

	return totals, nil
}

func (s *FileStore) writeAtomic(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
