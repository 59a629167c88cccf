package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

const auditGenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AppendAuditEntry appends one ledger entry. The table is locked in
// EXCLUSIVE mode for the duration of the transaction: concurrent writers
// queue up while readers stay unblocked, so reading the tip and inserting
// the successor is atomic and the chain cannot fork.
func (d *Database) AppendAuditEntry(ctx context.Context, build database.AuditEntryBuilder) (int64, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error appending audit entry: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `LOCK TABLE audit_log IN EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("error locking audit table: %w", err)
	}

	prevHash := auditGenesisHash
	err = tx.QueryRowxContext(ctx,
		`SELECT entry_hash FROM audit_log ORDER BY id DESC LIMIT 1`).Scan(&prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("error reading audit chain tip: %w", err)
	}

	entry, err := build(prevHash)
	if err != nil {
		return 0, fmt.Errorf("error building audit entry: %w", err)
	}

	insert := `INSERT INTO audit_log
			(timestamp, actor_id_hash, actor_role, ip_hash, session_hash,
				action_type, level, details, prev_hash, entry_hash, signature)
			VALUES (:timestamp, :actor_id_hash, :actor_role, :ip_hash, :session_hash,
				:action_type, :level, :details, :prev_hash, :entry_hash, :signature)
			RETURNING id`
	result, err := tx.NamedQuery(insert, entry)
	if err != nil {
		return 0, fmt.Errorf("error inserting audit entry: %w", err)
	}
	if !result.Next() {
		result.Close()
		return 0, fmt.Errorf("error inserting audit entry: there is no next result row")
	}
	var id int64
	if err := result.Scan(&id); err != nil {
		result.Close()
		return 0, fmt.Errorf("error inserting audit entry: %w", err)
	}
	result.Close()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing audit entry: %w", err)
	}
	return id, nil
}

// AuditEntries returns up to limit entries after the given id, ascending.
// Reads take no lock, the verifier can run concurrently with writers.
func (d *Database) AuditEntries(ctx context.Context, afterID int64, limit int) ([]types.AuditEntry, error) {
	var entries []types.AuditEntry
	selectEntries := `SELECT id, timestamp, actor_id_hash, actor_role, ip_hash, session_hash,
						action_type, level, details, prev_hash, entry_hash, signature
					FROM audit_log WHERE id > $1 ORDER BY id ASC LIMIT $2`
	if err := d.db.SelectContext(ctx, &entries, selectEntries, afterID, limit); err != nil {
		return nil, fmt.Errorf("error getting audit entries: %w", err)
	}
	return entries, nil
}

func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warnf("transaction rollback failed: %v", err)
	}
}
