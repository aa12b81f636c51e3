// Package history persists per-unit execution outcomes across runs and
// derives stability signals from them. The store is append-only: records
// are written once per run in a single batch and never edited or
// removed, so concurrent reads are always safe.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-infra/scenario-acceptor/types"
)

// Record is one persisted execution outcome for a test unit. Only the
// final per-run status is recorded; intermediate retry attempts live in
// the run's ExecutionResult, not here.
type Record struct {
	TestID       string        `json:"test_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       types.Status  `json:"status"`
	Duration     time.Duration `json:"duration"`
	AttemptsUsed int           `json:"attempts_used"`
}

// Query bounds a read over a unit's record sequence
type Query struct {
	Since time.Time // zero means unbounded
	Until time.Time // zero means unbounded
	Limit int       // keep only the last N matching records; 0 keeps all
}

// Store is a file-backed append-only log of historical records, keyed by
// test identifier. The on-disk format is one JSON record per line.
// Writes follow a single-writer discipline: one batched append per run.
type Store struct {
	path string
	log  log.Logger

	mu      sync.RWMutex
	records map[string][]Record // per test id, ordered by timestamp
}

// NewStore opens (or creates) a store at the given path and loads the
// existing record index
func NewStore(path string, logger log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if logger == nil {
		logger = log.New()
	}

	s := &Store{
		path:    path,
		log:     logger.New("component", "history-store"),
		records: make(map[string][]Record),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("loading history store: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("No existing history file, starting fresh", "path", s.path)
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("malformed record at line %d: %w", line, err)
		}
		s.records[rec.TestID] = append(s.records[rec.TestID], rec)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Records land in write order; enforce the per-id timestamp ordering
	// the readers rely on
	for id := range s.records {
		recs := s.records[id]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		})
	}

	s.log.Debug("Loaded history", "path", s.path, "tests", len(s.records))
	return nil
}

// AppendRun converts a run's execution results to historical records and
// appends them in one batch. This is the store's only write path.
func (s *Store) AppendRun(results []types.ExecutionResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history directory: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	appended := make([]Record, 0, len(results))
	for _, res := range results {
		rec := Record{
			TestID:       res.UnitID,
			Timestamp:    res.Timestamp,
			Status:       res.Status,
			Duration:     res.Duration,
			AttemptsUsed: res.AttemptsUsed,
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = time.Now()
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record for %q: %w", rec.TestID, err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing record for %q: %w", rec.TestID, err)
		}
		appended = append(appended, rec)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing history file: %w", err)
	}

	// Only index what reached disk. A batch may carry several records
	// for one id (a unit can belong to multiple groups) in arbitrary
	// order, so restore the per-id timestamp ordering the readers rely
	// on.
	touched := make(map[string]struct{}, len(appended))
	for _, rec := range appended {
		s.records[rec.TestID] = append(s.records[rec.TestID], rec)
		touched[rec.TestID] = struct{}{}
	}
	for id := range touched {
		recs := s.records[id]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		})
	}

	s.log.Info("Appended run to history", "records", len(appended), "path", s.path)
	return nil
}

// Records returns a copy of the record sequence for a test identifier,
// ordered by timestamp and bounded by the query
func (s *Store) Records(testID string, q Query) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records[testID] {
		if !q.Since.IsZero() && rec.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && rec.Timestamp.After(q.Until) {
			continue
		}
		out = append(out, rec)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Trend returns the (timestamp, status) sequence for a test identifier
// over the queried window. The sequence is restartable: each range
// re-reads the store, so re-reading an unmodified store yields the same
// sequence.
func (s *Store) Trend(testID string, q Query) func(yield func(time.Time, types.Status) bool) {
	return func(yield func(time.Time, types.Status) bool) {
		for _, rec := range s.Records(testID, q) {
			if !yield(rec.Timestamp, rec.Status) {
				return
			}
		}
	}
}

// TestIDs returns the identifiers with at least one record, sorted
func (s *Store) TestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
