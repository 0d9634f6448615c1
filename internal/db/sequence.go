package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pinggolf/m3-scheduling-core/internal/scheduling"
)

// SchedulingSequence is a Postgres-backed scheduling.SequencePort. Each
// kind ("HWS", "HJB") owns one row in mes_id_sequences; Next locks that
// row for the duration of the transaction so concurrent pipeline runs
// serialize on allocation (§5, §6.4).
type SchedulingSequence struct {
	db *sql.DB
}

// NewSchedulingSequence creates a SchedulingSequence port.
func NewSchedulingSequence(database *sql.DB) *SchedulingSequence {
	return &SchedulingSequence{db: database}
}

// Next returns the next strictly-increasing value for kind.
func (s *SchedulingSequence) Next(ctx context.Context, kind string) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sequence transaction: %w", err)
	}
	defer tx.Rollback()

	var current uint64
	err = tx.QueryRowContext(ctx,
		`SELECT current_value FROM mes_id_sequences WHERE kind = $1 FOR UPDATE`,
		kind,
	).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mes_id_sequences (kind, current_value) VALUES ($1, 0)`,
			kind,
		); err != nil {
			return 0, fmt.Errorf("seed sequence row for %s: %w", kind, err)
		}
	case err != nil:
		return 0, fmt.Errorf("lock sequence row for %s: %w", kind, err)
	}

	next := current + 1
	if _, err := tx.ExecContext(ctx,
		`UPDATE mes_id_sequences SET current_value = $1, updated_at = NOW() WHERE kind = $2`,
		next, kind,
	); err != nil {
		return 0, fmt.Errorf("advance sequence for %s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sequence transaction: %w", err)
	}

	return next, nil
}

var _ scheduling.SequencePort = (*SchedulingSequence)(nil)
