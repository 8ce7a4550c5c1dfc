// Package store keeps a durable copy of the aggregate table in SQLite so
// reports can be produced across runs without re-reading every CSV file.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

// SQLiteStore persists aggregate counts and run records.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path. Use ":memory:" for an
// in-memory database.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.StorageError("open sqlite database").
			WithContext("path", path).WithCause(err).Build()
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError("initialize schema").
			WithContext("path", path).WithCause(err).Build()
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS counts (
		sets INTEGER NOT NULL,
		cubes INTEGER NOT NULL,
		faces INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		vertices INTEGER NOT NULL,
		hand_size INTEGER NOT NULL,
		deals INTEGER NOT NULL,
		hand_type TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (sets, cubes, faces, edges, vertices, hand_size, deals, hand_type)
	);
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		games INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		policy TEXT NOT NULL,
		rng TEXT NOT NULL,
		seed INTEGER NOT NULL,
		file TEXT,
		stopped INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

const upsertCount = `
	INSERT INTO counts (sets, cubes, faces, edges, vertices, hand_size, deals, hand_type, count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (sets, cubes, faces, edges, vertices, hand_size, deals, hand_type)
	DO UPDATE SET count = count + excluded.count`

// MergeRun adds t into the stored counts and records run, in one
// transaction. Recording the same run id twice is rejected so a run is
// never counted double.
func (s *SQLiteStore) MergeRun(ctx context.Context, run stats.Run, t stats.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StorageError("begin transaction").WithCause(err).Build()
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at, games, failed, steps, policy, rng, seed, file, stopped) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), int64(run.Games), int64(run.Failed),
		int64(run.Steps), run.Policy, run.RNG, int64(run.Seed), run.File, run.Stopped,
	)
	if err != nil {
		return errors.StorageError("insert run").WithContext("run_id", run.ID).WithCause(err).Build()
	}

	stmt, err := tx.PrepareContext(ctx, upsertCount)
	if err != nil {
		return errors.StorageError("prepare count upsert").WithCause(err).Build()
	}
	defer func() { _ = stmt.Close() }()

	for _, info := range t.Keys() {
		_, err := stmt.ExecContext(ctx, info.Sets, info.Cubes, info.Faces, info.Edges, info.Vertices,
			info.HandSize, info.Deals, string(info.HandType), int64(t[info]))
		if err != nil {
			return errors.StorageError("upsert count").
				WithContext("key", info.String()).WithCause(err).Build()
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageError("commit run").WithContext("run_id", run.ID).WithCause(err).Build()
	}
	return nil
}

// Table returns every stored count.
func (s *SQLiteStore) Table(ctx context.Context) (stats.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT sets, cubes, faces, edges, vertices, hand_size, deals, hand_type, count FROM counts")
	if err != nil {
		return nil, errors.StorageError("query counts").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	out := make(stats.Table)
	for rows.Next() {
		var info stats.Info
		var handType string
		var n int64
		if err := rows.Scan(&info.Sets, &info.Cubes, &info.Faces, &info.Edges, &info.Vertices,
			&info.HandSize, &info.Deals, &handType, &n); err != nil {
			return nil, errors.StorageError("scan count").WithCause(err).Build()
		}
		info.HandType = stats.HandType(handType)
		out.Add(info, uint64(n))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("iterate counts").WithCause(err).Build()
	}
	return out, nil
}

// Runs returns the recorded runs, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]stats.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, games, failed, steps, policy, rng, seed, COALESCE(file, ''), stopped FROM runs ORDER BY started_at, id")
	if err != nil {
		return nil, errors.StorageError("query runs").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var runs []stats.Run
	for rows.Next() {
		var r stats.Run
		var started, finished, games, failed, steps, seed int64
		if err := rows.Scan(&r.ID, &started, &finished, &games, &failed, &steps,
			&r.Policy, &r.RNG, &seed, &r.File, &r.Stopped); err != nil {
			return nil, errors.StorageError("scan run").WithCause(err).Build()
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.Elapsed = r.FinishedAt.Sub(r.StartedAt)
		r.Games, r.Failed, r.Steps, r.Seed = uint64(games), uint64(failed), uint64(steps), uint64(seed)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("iterate runs").WithCause(err).Build()
	}
	return runs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
