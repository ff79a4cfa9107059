package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/database"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// runLockKey is the advisory lock key serializing pipeline runs against
// one database.
const runLockKey = 7342100

// ErrRunInProgress is returned when another pipeline execution holds the
// run lock.
var ErrRunInProgress = fmt.Errorf("another pipeline run is in progress")

// Store is the canonical session store. Output replaces prior state
// atomically, guarded by an advisory run lock so at most one pipeline
// execution writes at a time.
type Store struct {
	db     *database.DB
	logger *logger.Logger
}

// New creates a session store
func New(db *database.DB, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithField("component", "store"),
	}
}

// AcquireRunLock takes the session-advisory lock on a dedicated
// connection. It fails fast with ErrRunInProgress instead of queueing
// behind a running pipeline.
func (s *Store) AcquireRunLock(ctx context.Context) (func(), error) {
	conn, err := s.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, runLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, ErrRunInProgress
	}

	release := func() {
		// Unlock on the same connection that took the lock
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, runLockKey); err != nil {
			s.logger.WithError(err).Warn("Failed to release run lock")
		}
		conn.Release()
	}
	return release, nil
}

// Count returns the number of stored sessions
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// Replace swaps the entire session set in one transaction
func (s *Store) Replace(ctx context.Context, sessions []contracts.Session) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	batch := &pgx.Batch{}
	for _, sess := range sessions {
		batch.Queue(`
			INSERT INTO sessions (facility_id, swim_type, date, start_time, end_time, notes, source_id, match_confidence, dedup_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			sess.FacilityID, string(sess.SwimType), sess.Date,
			sess.StartTime.String(), sess.EndTime.String(),
			sess.Notes, sess.SourceID, sess.MatchConfidence, sess.DedupHash)
	}

	results := tx.SendBatch(ctx, batch)
	for range sessions {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert session: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.WithField("count", len(sessions)).Info("Replaced session store")
	return nil
}

// List returns all stored sessions in canonical order
func (s *Store) List(ctx context.Context) ([]contracts.Session, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT facility_id, swim_type, date, start_time, end_time, notes, source_id, match_confidence, dedup_hash
		FROM sessions
		ORDER BY facility_id, date, start_time, swim_type, dedup_hash`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []contracts.Session
	for rows.Next() {
		var sess contracts.Session
		var swimType, start, end string
		if err := rows.Scan(&sess.FacilityID, &swimType, &sess.Date, &start, &end,
			&sess.Notes, &sess.SourceID, &sess.MatchConfidence, &sess.DedupHash); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.SwimType = contracts.SwimType(swimType)
		if sess.StartTime, err = contracts.ParseClock(start); err != nil {
			return nil, fmt.Errorf("parse start time: %w", err)
		}
		if sess.EndTime, err = contracts.ParseClock(end); err != nil {
			return nil, fmt.Errorf("parse end time: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
