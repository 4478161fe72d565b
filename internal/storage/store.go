package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/sim"
	"k8s.io/klog/v2"

	_ "modernc.org/sqlite"
)

const (
	indexFile      = "runs.db"
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	logqpFile      = "logqp.csv"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("storage: run not found")

// Store keeps one directory per run under baseDir and indexes them in a
// sqlite database.
type Store struct {
	baseDir string

	mu sync.RWMutex
	db *sql.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(s.baseDir, indexFile))
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create run index")
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

// RunMetadata describes one stored run.
type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Method    string             `json:"method"`
	Noise     string             `json:"noise"`
	Brownian  string             `json:"brownian"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      uint64             `json:"seed"`
	Dt        float64            `json:"dt"`
	Adaptive  bool               `json:"adaptive"`
	Batch     int                `json:"batch"`
	T0        float64            `json:"t0"`
	T1        float64            `json:"t1"`
	Logqp     bool               `json:"logqp"`
	Steps     int                `json:"steps"`
	Rejected  int                `json:"rejected"`
	Forced    int                `json:"forced"`
	Params    map[string]float64 `json:"params,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes the run directory and indexes it. ID, Timestamp, step
// counts, time span and metrics are filled in from result.
func (s *Store) Save(ctx context.Context, meta RunMetadata, result *sim.Result) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now().UTC()
	meta.Steps = result.Stats.Steps
	meta.Rejected = result.Stats.Rejected
	meta.Forced = result.Stats.Forced
	meta.Metrics = result.Metrics
	if n := len(result.Times); n > 0 {
		meta.T0, meta.T1 = result.Times[0], result.Times[n-1]
	}
	if len(result.States) > 0 {
		meta.Batch = result.States[0].Batch()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, trajectoryFile), func(f *os.File) error {
		return WriteTrajectoryCSV(f, result)
	}); err != nil {
		return "", err
	}
	if result.LogRatio != nil {
		if err := writeFile(filepath.Join(runDir, logqpFile), func(f *os.File) error {
			return WriteLogqpCSV(f, result)
		}); err != nil {
			return "", err
		}
	}

	if err := insertRun(ctx, db, meta); err != nil {
		return "", errors.Wrapf(err, "index run %s", meta.ID)
	}
	klog.V(1).Infof("stored run %s in %s", meta.ID, runDir)
	return meta.ID, nil
}

// List returns every indexed run, newest first.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	return listRuns(ctx, db)
}

func (s *Store) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	return getRun(ctx, db, runID)
}

// LoadResult reads a run's trajectory and log-ratio files back.
func (s *Store) LoadResult(ctx context.Context, runID string) (*sim.Result, error) {
	meta, err := s.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	runDir := filepath.Join(s.baseDir, runID)

	f, err := os.Open(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	result, err := ReadTrajectoryCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s", runID)
	}
	result.Metrics = meta.Metrics
	result.Stats.Steps = meta.Steps
	result.Stats.Rejected = meta.Rejected
	result.Stats.Forced = meta.Forced

	if meta.Logqp {
		lf, err := os.Open(filepath.Join(runDir, logqpFile))
		if err != nil {
			return nil, err
		}
		defer lf.Close()
		if result.LogRatio, err = ReadLogqpCSV(lf); err != nil {
			return nil, errors.Wrapf(err, "run %s", runID)
		}
	}
	return result, nil
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
