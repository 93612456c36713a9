// Package sqlite persists encounter outcomes in a single SQLite file for
// standalone deployments.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

//go:embed schema.sql
var schema string

// OutcomeStore is a storage.OutcomeStore backed by SQLite.
type OutcomeStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// The special path ":memory:" opens a private in-memory database.
//
// Postcondition: Returns a ready store or a non-nil error.
func Open(ctx context.Context, path string) (*OutcomeStore, error) {
	dsn := "file::memory:?_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating sqlite directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer; an in-memory database also lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return &OutcomeStore{db: db}, nil
}

// Close releases the database.
func (s *OutcomeStore) Close() error {
	return s.db.Close()
}

// SaveOutcome inserts o.
//
// Postcondition: returns storage.ErrDuplicate if an outcome with the same
// encounter ID is already stored.
func (s *OutcomeStore) SaveOutcome(ctx context.Context, o combat.Outcome) error {
	rec, err := storage.NewRecord(o)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO encounter_outcomes
		   (encounter_id, reason, winner, rounds, combatants, action_log, ended_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (encounter_id) DO NOTHING`,
		rec.EncounterID, rec.Reason, rec.Winner, rec.Rounds,
		string(rec.Combatants), string(rec.Log), rec.EndedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting outcome: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, rec.EncounterID)
	}
	return nil
}

// LoadOutcome retrieves and verifies the outcome of encounterID.
//
// Postcondition: returns storage.ErrNotFound when no row matches.
func (s *OutcomeStore) LoadOutcome(ctx context.Context, encounterID string) (combat.Outcome, error) {
	var (
		rec        storage.Record
		combatants string
		log        string
		endedAt    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT encounter_id, reason, winner, rounds, combatants, action_log, ended_at_ns
		 FROM encounter_outcomes WHERE encounter_id = ?`,
		encounterID,
	).Scan(&rec.EncounterID, &rec.Reason, &rec.Winner, &rec.Rounds, &combatants, &log, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return combat.Outcome{}, fmt.Errorf("%w: %s", storage.ErrNotFound, encounterID)
		}
		return combat.Outcome{}, fmt.Errorf("querying outcome: %w", err)
	}
	rec.Combatants = []byte(combatants)
	rec.Log = []byte(log)
	rec.EndedAt = time.Unix(0, endedAt).UTC()
	return rec.Outcome()
}

// ListOutcomes returns up to limit outcomes, most recently ended first.
//
// Precondition: limit > 0.
func (s *OutcomeStore) ListOutcomes(ctx context.Context, limit int) ([]storage.OutcomeSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT encounter_id, reason, winner, rounds, ended_at_ns
		 FROM encounter_outcomes ORDER BY ended_at_ns DESC, encounter_id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer rows.Close()

	var out []storage.OutcomeSummary
	for rows.Next() {
		var (
			rec     storage.Record
			endedAt int64
		)
		if err := rows.Scan(&rec.EncounterID, &rec.Reason, &rec.Winner, &rec.Rounds, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		rec.EndedAt = time.Unix(0, endedAt).UTC()
		out = append(out, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return out, nil
}
