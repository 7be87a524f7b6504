// Package file provides file-based baseline and inference log storage. Each
// data set lives in a single JSON file under the data directory, rewritten
// atomically on every update.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
)

// Default configuration values
const (
	DefaultDataDir    = "./data"
	BaselinesFileName = "baseline_stats.json"
	LogsFileName      = "inference_logs.json"

	// MaxLogsPerQuery caps how many logs a single read returns.
	MaxLogsPerQuery = 1000
)

// Store reads and writes baselines and inference logs as JSON files.
type Store struct {
	dataDir string
	mu      sync.RWMutex
}

// New creates a file store rooted at dataDir, creating it if needed.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Baseline returns the active baseline for a model.
func (s *Store) Baseline(ctx context.Context, modelID string) (*models.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baselines, err := s.readBaselines()
	if err != nil {
		return nil, err
	}

	baseline, ok := baselines[modelID]
	if !ok {
		return nil, fmt.Errorf("baseline for model %s: %w", modelID, models.ErrNotFound)
	}
	return baseline, nil
}

// StoreBaseline saves (or replaces) the baseline for its model.
func (s *Store) StoreBaseline(ctx context.Context, baseline *models.Baseline) error {
	if baseline == nil {
		return errors.New("baseline cannot be nil")
	}
	if baseline.ModelID == "" {
		return errors.New("baseline model id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	baselines, err := s.readBaselines()
	if err != nil {
		return err
	}

	if baseline.CreatedAt.IsZero() {
		baseline.CreatedAt = time.Now().UTC()
	}
	baselines[baseline.ModelID] = baseline

	return s.writeJSON(BaselinesFileName, baselines)
}

// ListModels returns the ids of all models that have a baseline, sorted.
func (s *Store) ListModels(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baselines, err := s.readBaselines()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(baselines))
	for id := range baselines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Logs returns up to limit inference logs for a model, newest first.
func (s *Store) Logs(ctx context.Context, modelID string, limit int) ([]*models.InferenceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.readLogs()
	if err != nil {
		return nil, err
	}

	var logs []*models.InferenceLog
	for _, log := range all {
		if log.ModelID == modelID {
			logs = append(logs, log)
		}
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})

	if limit <= 0 || limit > MaxLogsPerQuery {
		limit = MaxLogsPerQuery
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// AppendLog records one inference observation.
func (s *Store) AppendLog(ctx context.Context, log *models.InferenceLog) error {
	if log == nil {
		return errors.New("log cannot be nil")
	}
	if log.ModelID == "" {
		return errors.New("log model id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readLogs()
	if err != nil {
		return err
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	all = append(all, log)

	return s.writeJSON(LogsFileName, all)
}

// readBaselines loads the baseline file (callers must hold the lock).
func (s *Store) readBaselines() (map[string]*models.Baseline, error) {
	baselines := make(map[string]*models.Baseline)
	if err := s.readJSON(BaselinesFileName, &baselines); err != nil {
		return nil, fmt.Errorf("reading baselines: %w", err)
	}
	return baselines, nil
}

// readLogs loads the inference log file (callers must hold the lock).
func (s *Store) readLogs() ([]*models.InferenceLog, error) {
	var logs []*models.InferenceLog
	if err := s.readJSON(LogsFileName, &logs); err != nil {
		return nil, fmt.Errorf("reading inference logs: %w", err)
	}
	return logs, nil
}

// readJSON unmarshals a data file into v. A missing file leaves v untouched.
func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dataDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes v to a data file via a temp file and rename, so readers
// never observe a partial write.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	path := filepath.Join(s.dataDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
