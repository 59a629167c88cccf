package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/rneumann/election-sub003/types"
)

// Sentinel errors every Database implementation maps its driver errors to.
var (
	// ErrNotFound is returned when an election or result row is missing
	ErrNotFound = errors.New("not found")
	// ErrAlreadyFinalized is returned when an election already carries a
	// final result and a write would violate the finality latch
	ErrAlreadyFinalized = errors.New("result already finalized")
)

// AuditEntryBuilder receives the entry hash of the most recent ledger entry
// (or the genesis constant on an empty ledger) and returns the fully built
// entry to append. It runs inside the ledger's exclusive-lock transaction,
// so no concurrent writer can slip between reading the tip and inserting.
type AuditEntryBuilder func(prevHash string) (*types.AuditEntry, error)

// Database is the storage contract of the counting core. Elections and
// aggregated votes are read-only; results are append-only except for the
// one-shot finalisation; audit entries are write-once.
type Database interface {
	// Elections
	Election(ctx context.Context, electionID uuid.UUID) (*types.Election, error)
	// AggregatedVotes returns the anonymised tallies of an election. For
	// referendums the options are joined with their ballot votes so that
	// options nobody voted for still appear with zero votes; every other
	// type reads the pre-aggregated counting view.
	AggregatedVotes(ctx context.Context, election *types.Election) ([]types.AggregatedVote, error)
	// BallotStatistics returns the ballot-box totals, zero-valued if the
	// election has no statistics row.
	BallotStatistics(ctx context.Context, electionID uuid.UUID) (*types.BallotStatistics, error)

	// Results
	// CreateResult assigns the next version for the election under a row
	// lock on the election row and inserts the result.
	CreateResult(ctx context.Context, result *types.ElectionResult) (id int64, version int, err error)
	HasFinalResult(ctx context.Context, electionID uuid.UUID) (bool, error)
	// FinalizeResult flips is_final on the given version; it fails if any
	// version of the election is already final or the version is missing.
	FinalizeResult(ctx context.Context, electionID uuid.UUID, version int) error
	Result(ctx context.Context, electionID uuid.UUID, version int) (*types.ElectionResult, error)
	LatestResult(ctx context.Context, electionID uuid.UUID) (*types.ElectionResult, error)

	// Audit ledger
	AppendAuditEntry(ctx context.Context, build AuditEntryBuilder) (int64, error)
	// AuditEntries returns up to limit entries with id > afterID in
	// ascending id order.
	AuditEntries(ctx context.Context, afterID int64, limit int) ([]types.AuditEntry, error)

	// Manage DB
	Ping() error
	Close() error
	// Migrations
	Migrate(dir migrate.MigrationDirection) (int, error)
	MigrateStatus() (int, int, string, error)
	MigrationUpSync() (int, error)
}
