// Package testdb is an in-memory database.Database used by the unit tests.
// A single mutex stands in for the storage engine's locks: it serialises
// audit appends and version assignment the way the table and row locks do
// in Postgres.
package testdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

type Database struct {
	mu sync.Mutex

	Elections  map[uuid.UUID]*types.Election
	Votes      map[uuid.UUID][]types.AggregatedVote
	Statistics map[uuid.UUID]*types.BallotStatistics
	Results    []*types.ElectionResult
	Audit      []*types.AuditEntry

	nextResultID int64
	nextAuditID  int64

	// FailAudit makes every audit append fail, for testing that counting
	// is never blocked by the ledger
	FailAudit bool
}

func New() *Database {
	return &Database{
		Elections:  make(map[uuid.UUID]*types.Election),
		Votes:      make(map[uuid.UUID][]types.AggregatedVote),
		Statistics: make(map[uuid.UUID]*types.BallotStatistics),
	}
}

func (d *Database) Election(_ context.Context, electionID uuid.UUID) (*types.Election, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	election, ok := d.Elections[electionID]
	if !ok {
		return nil, fmt.Errorf("%w: election %s", database.ErrNotFound, electionID)
	}
	copied := *election
	return &copied, nil
}

func (d *Database) AggregatedVotes(_ context.Context, election *types.Election) ([]types.AggregatedVote, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	votes := make([]types.AggregatedVote, len(d.Votes[election.ID]))
	copy(votes, d.Votes[election.ID])
	return votes, nil
}

func (d *Database) BallotStatistics(_ context.Context, electionID uuid.UUID) (*types.BallotStatistics, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats, ok := d.Statistics[electionID]
	if !ok {
		return &types.BallotStatistics{Election: electionID}, nil
	}
	copied := *stats
	return &copied, nil
}

func (d *Database) CreateResult(_ context.Context, result *types.ElectionResult) (int64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Elections[result.ElectionID]; !ok {
		return 0, 0, fmt.Errorf("%w: election %s", database.ErrNotFound, result.ElectionID)
	}
	version := 0
	for _, r := range d.Results {
		if r.ElectionID == result.ElectionID && r.Version > version {
			version = r.Version
		}
	}
	version++
	d.nextResultID++
	stored := *result
	stored.ID = d.nextResultID
	stored.Version = version
	d.Results = append(d.Results, &stored)
	return stored.ID, version, nil
}

func (d *Database) HasFinalResult(_ context.Context, electionID uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasFinal(electionID), nil
}

func (d *Database) hasFinal(electionID uuid.UUID) bool {
	for _, r := range d.Results {
		if r.ElectionID == electionID && r.IsFinal {
			return true
		}
	}
	return false
}

func (d *Database) FinalizeResult(_ context.Context, electionID uuid.UUID, version int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasFinal(electionID) {
		return fmt.Errorf("%w: election %s", database.ErrAlreadyFinalized, electionID)
	}
	for _, r := range d.Results {
		if r.ElectionID == electionID && r.Version == version {
			r.IsFinal = true
			return nil
		}
	}
	return fmt.Errorf("%w: election %s version %d", database.ErrNotFound, electionID, version)
}

func (d *Database) Result(_ context.Context, electionID uuid.UUID, version int) (*types.ElectionResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.Results {
		if r.ElectionID == electionID && r.Version == version {
			copied := *r
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: no result for election %s", database.ErrNotFound, electionID)
}

func (d *Database) LatestResult(_ context.Context, electionID uuid.UUID) (*types.ElectionResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var latest *types.ElectionResult
	for _, r := range d.Results {
		if r.ElectionID == electionID && (latest == nil || r.Version > latest.Version) {
			latest = r
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no result for election %s", database.ErrNotFound, electionID)
	}
	copied := *latest
	return &copied, nil
}

func (d *Database) AppendAuditEntry(_ context.Context, build database.AuditEntryBuilder) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAudit {
		return 0, fmt.Errorf("audit storage unavailable")
	}
	prevHash := strings.Repeat("0", 64)
	if len(d.Audit) > 0 {
		prevHash = d.Audit[len(d.Audit)-1].EntryHash
	}
	entry, err := build(prevHash)
	if err != nil {
		return 0, err
	}
	d.nextAuditID++
	stored := *entry
	stored.ID = d.nextAuditID
	d.Audit = append(d.Audit, &stored)
	return stored.ID, nil
}

func (d *Database) AuditEntries(_ context.Context, afterID int64, limit int) ([]types.AuditEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var entries []types.AuditEntry
	for _, e := range d.Audit {
		if e.ID > afterID {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].ID < entries[b].ID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (d *Database) Ping() error {
	return nil
}

func (d *Database) Close() error {
	return nil
}

func (d *Database) Migrate(migrate.MigrationDirection) (int, error) {
	return 0, nil
}

func (d *Database) MigrateStatus() (int, int, string, error) {
	return 0, 0, "{}", nil
}

func (d *Database) MigrationUpSync() (int, error) {
	return 0, nil
}
