package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

// CreateResult inserts a new result row with the next version of the
// election. The election row is locked FOR UPDATE first, so concurrent
// countings of the same election serialise and receive consecutive
// versions.
func (d *Database) CreateResult(ctx context.Context, result *types.ElectionResult) (int64, int, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating result: %w", err)
	}
	defer rollback(tx)

	var locked uuid.UUID
	if err := tx.QueryRowxContext(ctx,
		`SELECT id FROM elections WHERE id = $1 FOR UPDATE`,
		result.ElectionID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("%w: election %s", database.ErrNotFound, result.ElectionID)
		}
		return 0, 0, fmt.Errorf("error locking election row: %w", err)
	}

	var version int
	if err := tx.QueryRowxContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM election_results WHERE election_id = $1`,
		result.ElectionID).Scan(&version); err != nil {
		return 0, 0, fmt.Errorf("error computing next version: %w", err)
	}

	var id int64
	insert := `INSERT INTO election_results
			(election_id, version, result_data, is_final, test_election, counted_by, counted_at)
			VALUES ($1, $2, $3, false, $4, $5, $6)
			RETURNING id`
	if err := tx.QueryRowxContext(ctx, insert, result.ElectionID, version,
		result.ResultData, result.TestElection, result.CountedBy,
		result.CountedAt).Scan(&id); err != nil {
		return 0, 0, fmt.Errorf("error inserting result: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("error committing result: %w", err)
	}
	return id, version, nil
}

func (d *Database) HasFinalResult(ctx context.Context, electionID uuid.UUID) (bool, error) {
	var final bool
	if err := d.db.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM election_results WHERE election_id = $1 AND is_final)`,
		electionID).Scan(&final); err != nil {
		return false, fmt.Errorf("error checking final result: %w", err)
	}
	return final, nil
}

// FinalizeResult flips is_final on one result version. Within the same
// transaction it rejects the flip if any version of the election is
// already final, making finalisation a one-way latch.
func (d *Database) FinalizeResult(ctx context.Context, electionID uuid.UUID, version int) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error finalizing result: %w", err)
	}
	defer rollback(tx)

	// the election row serialises finalisations the same way it
	// serialises version assignment
	var locked uuid.UUID
	if err := tx.QueryRowxContext(ctx,
		`SELECT id FROM elections WHERE id = $1 FOR UPDATE`,
		electionID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: election %s", database.ErrNotFound, electionID)
		}
		return fmt.Errorf("error locking election row: %w", err)
	}
	var final bool
	if err := tx.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM election_results WHERE election_id = $1 AND is_final)`,
		electionID).Scan(&final); err != nil {
		return fmt.Errorf("error checking final result: %w", err)
	}
	if final {
		return fmt.Errorf("%w: election %s", database.ErrAlreadyFinalized, electionID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE election_results SET is_final = true WHERE election_id = $1 AND version = $2`,
		electionID, version)
	if err != nil {
		return fmt.Errorf("error finalizing result: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error finalizing result: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("%w: election %s version %d", database.ErrNotFound, electionID, version)
	}
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_notify('election_results_update', $1 || ' VERSION=' || $2::text)`,
		electionID.String(), version); err != nil {
		return fmt.Errorf("error notifying finalized result: %w", err)
	}
	return tx.Commit()
}

func (d *Database) Result(ctx context.Context, electionID uuid.UUID, version int) (*types.ElectionResult, error) {
	selectResult := `SELECT id, election_id, version, result_data, is_final, test_election, counted_by, counted_at
					FROM election_results WHERE election_id = $1 AND version = $2`
	return d.scanResult(d.db.QueryRowxContext(ctx, selectResult, electionID, version),
		electionID)
}

func (d *Database) LatestResult(ctx context.Context, electionID uuid.UUID) (*types.ElectionResult, error) {
	selectResult := `SELECT id, election_id, version, result_data, is_final, test_election, counted_by, counted_at
					FROM election_results WHERE election_id = $1 ORDER BY version DESC LIMIT 1`
	return d.scanResult(d.db.QueryRowxContext(ctx, selectResult, electionID), electionID)
}

type rowScanner interface {
	StructScan(dest interface{}) error
}

func (d *Database) scanResult(row rowScanner, electionID uuid.UUID) (*types.ElectionResult, error) {
	var result types.ElectionResult
	if err := row.StructScan(&result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no result for election %s", database.ErrNotFound, electionID)
		}
		return nil, fmt.Errorf("error getting result: %w", err)
	}
	return &result, nil
}
