package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			method TEXT NOT NULL,
			noise TEXT NOT NULL,
			brownian TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			dt REAL NOT NULL,
			adaptive INTEGER NOT NULL,
			batch INTEGER NOT NULL,
			t0 REAL NOT NULL,
			t1 REAL NOT NULL,
			logqp INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			forced INTEGER NOT NULL,
			params TEXT NOT NULL,
			metrics TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_model ON runs (model);
	`)
	return err
}

const runColumns = `id, model, method, noise, brownian, created_at, seed, dt, adaptive,
	batch, t0, t1, logqp, steps, rejected, forced, params, metrics`

func insertRun(ctx context.Context, db *sql.DB, m RunMetadata) error {
	params, err := json.Marshal(m.Params)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(m.Metrics)
	if err != nil {
		return err
	}
	// seeds are stored bit for bit; sqlite integers are signed
	_, err = db.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Model, m.Method, m.Noise, m.Brownian, m.Timestamp.UnixNano(), int64(m.Seed),
		m.Dt, m.Adaptive, m.Batch, m.T0, m.T1, m.Logqp, m.Steps, m.Rejected, m.Forced,
		string(params), string(metrics))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunMetadata, error) {
	var (
		m               RunMetadata
		created, seed   int64
		params, metrics string
	)
	err := row.Scan(&m.ID, &m.Model, &m.Method, &m.Noise, &m.Brownian, &created, &seed,
		&m.Dt, &m.Adaptive, &m.Batch, &m.T0, &m.T1, &m.Logqp, &m.Steps, &m.Rejected, &m.Forced,
		&params, &metrics)
	if err != nil {
		return m, err
	}
	m.Timestamp = time.Unix(0, created).UTC()
	m.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(params), &m.Params); err != nil {
		return m, errors.Wrapf(err, "run %s params", m.ID)
	}
	if err := json.Unmarshal([]byte(metrics), &m.Metrics); err != nil {
		return m, errors.Wrapf(err, "run %s metrics", m.ID)
	}
	return m, nil
}

func getRun(ctx context.Context, db *sql.DB, id string) (*RunMetadata, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	m, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "id %s", id)
		}
		return nil, err
	}
	return &m, nil
}

func listRuns(ctx context.Context, db *sql.DB) ([]RunMetadata, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}
