package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

// OutcomeRepository stores finished encounters in the encounter_outcomes table.
type OutcomeRepository struct {
	db *pgxpool.Pool
}

// NewOutcomeRepository creates an OutcomeRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewOutcomeRepository(db *pgxpool.Pool) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// SaveOutcome inserts o.
//
// Postcondition: returns storage.ErrDuplicate if an outcome with the same
// encounter ID is already stored.
func (r *OutcomeRepository) SaveOutcome(ctx context.Context, o combat.Outcome) error {
	rec, err := storage.NewRecord(o)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO encounter_outcomes
		   (encounter_id, reason, winner, rounds, combatants, action_log, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.EncounterID, rec.Reason, rec.Winner, rec.Rounds,
		string(rec.Combatants), string(rec.Log), rec.EndedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, rec.EncounterID)
		}
		return fmt.Errorf("inserting outcome: %w", err)
	}
	return nil
}

// LoadOutcome retrieves and verifies the outcome of encounterID.
//
// Postcondition: returns storage.ErrNotFound when no row matches.
func (r *OutcomeRepository) LoadOutcome(ctx context.Context, encounterID string) (combat.Outcome, error) {
	var (
		rec        storage.Record
		combatants string
		log        string
	)
	err := r.db.QueryRow(ctx,
		`SELECT encounter_id, reason, winner, rounds, combatants::text, action_log, ended_at
		 FROM encounter_outcomes WHERE encounter_id = $1`,
		encounterID,
	).Scan(&rec.EncounterID, &rec.Reason, &rec.Winner, &rec.Rounds, &combatants, &log, &rec.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return combat.Outcome{}, fmt.Errorf("%w: %s", storage.ErrNotFound, encounterID)
		}
		return combat.Outcome{}, fmt.Errorf("querying outcome: %w", err)
	}
	rec.Combatants = []byte(combatants)
	rec.Log = []byte(log)
	return rec.Outcome()
}

// ListOutcomes returns up to limit outcomes, most recently ended first.
//
// Precondition: limit > 0.
func (r *OutcomeRepository) ListOutcomes(ctx context.Context, limit int) ([]storage.OutcomeSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT encounter_id, reason, winner, rounds, ended_at
		 FROM encounter_outcomes ORDER BY ended_at DESC, encounter_id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer rows.Close()

	var out []storage.OutcomeSummary
	for rows.Next() {
		var rec storage.Record
		if err := rows.Scan(&rec.EncounterID, &rec.Reason, &rec.Winner, &rec.Rounds, &rec.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		out = append(out, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return out, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
