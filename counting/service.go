package counting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/audit"
	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

// Service is the counting orchestrator. It validates election readiness,
// loads only aggregated data, runs the configured algorithm, versions the
// result and records the run in the audit ledger. Concurrent countings of
// the same election are serialised by the storage layer's row lock, so both
// succeed with consecutive versions.
type Service struct {
	db      database.Database
	auditor *audit.Logger
}

func NewService(db database.Database, auditor *audit.Logger) *Service {
	return &Service{db: db, auditor: auditor}
}

// PerformCounting counts the election and stores a new result version.
// Every attempt, successful or not, leaves a COUNTING_PERFORMED entry in
// the audit ledger; an audit failure alone never fails the counting.
func (s *Service) PerformCounting(ctx context.Context, electionID uuid.UUID, userID string) (*types.CountingSummary, error) {
	summary, err := s.performCounting(ctx, electionID, userID)
	if err != nil {
		countingsPerformed.WithLabelValues("error").Inc()
		s.audit(ctx, audit.Event{
			ActorID:    userID,
			ActionType: types.ActionCountingPerformed,
			Level:      types.LevelError,
			Details: map[string]interface{}{
				"election_id": electionID.String(),
				"error":       err.Error(),
			},
		})
		return nil, err
	}
	countingsPerformed.WithLabelValues("ok").Inc()
	s.audit(ctx, audit.Event{
		ActorID:    userID,
		ActionType: types.ActionCountingPerformed,
		Level:      types.LevelInfo,
		Details: map[string]interface{}{
			"election_id":   electionID.String(),
			"algorithm":     summary.Algorithm,
			"result_id":     summary.ResultID,
			"version":       summary.Version,
			"ties_detected": summary.TiesDetected,
			"test_election": summary.TestElection,
		},
	})
	return summary, nil
}

func (s *Service) performCounting(ctx context.Context, electionID uuid.UUID, userID string) (*types.CountingSummary, error) {
	if electionID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty election id", ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	election, err := s.db.Election(ctx, electionID)
	if err != nil {
		return nil, storageErr("cannot load election", err)
	}
	if isSeatAllocating(election.CountingMethod) && election.SeatsToFill < 1 {
		return nil, fmt.Errorf("%w: election %q has seats_to_fill %d",
			ErrConfiguration, election.Info, election.SeatsToFill)
	}

	hasFinal, err := s.db.HasFinalResult(ctx, electionID)
	if err != nil {
		return nil, storageErr("cannot check finalized results", err)
	}
	if err := ValidateForCounting(election, hasFinal); err != nil {
		return nil, err
	}

	votes, err := s.db.AggregatedVotes(ctx, election)
	if err != nil {
		return nil, storageErr("cannot load aggregated votes", err)
	}
	if election.ElectionType == types.TypeMajorityVote && len(votes) == 0 {
		return nil, fmt.Errorf("%w: majority election %q has no candidates",
			ErrConfiguration, election.Info)
	}

	stats, err := s.db.BallotStatistics(ctx, electionID)
	if err != nil {
		return nil, storageErr("cannot load ballot statistics", err)
	}

	algo, err := AlgorithmFor(election.CountingMethod)
	if err != nil {
		return nil, err
	}
	result, err := algo(Input{
		Votes: votes,
		Config: Config{
			SeatsToFill:        election.SeatsToFill,
			MaxCumulativeVotes: election.MaxCumulativeVotes,
			TotalValidBallots:  stats.ValidBallots,
			BallotStatistics:   stats,
			CountingMethod:     election.CountingMethod,
		},
	})
	if err != nil {
		return nil, err
	}

	resultData, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("cannot encode result: %w", err)
	}
	now := time.Now().UTC()
	row := &types.ElectionResult{
		ElectionID:   electionID,
		ResultData:   resultData,
		CountedBy:    userID,
		CountedAt:    now,
		TestElection: election.Start.After(now),
	}
	id, version, err := s.db.CreateResult(ctx, row)
	if err != nil {
		return nil, storageErr("cannot store result", err)
	}
	log.Infof("counted election %s with %s: result %d version %d (test=%v, ties=%v)",
		electionID, result.Algorithm, id, version, row.TestElection, result.TiesDetected)

	return &types.CountingSummary{
		Success:      true,
		ResultID:     id,
		Version:      version,
		TiesDetected: result.TiesDetected,
		CountedAt:    now,
		Algorithm:    result.Algorithm,
		TestElection: row.TestElection,
	}, nil
}

// FinalizeResults marks one result version as the official outcome of the
// election. The latch is one-way and storage-enforced: a second
// finalisation of any version fails.
func (s *Service) FinalizeResults(ctx context.Context, electionID uuid.UUID, version int, userID string) error {
	if electionID == uuid.Nil || userID == "" {
		return fmt.Errorf("%w: empty election or user id", ErrInvalidInput)
	}
	if version < 1 {
		return fmt.Errorf("%w: version must be >= 1", ErrInvalidInput)
	}
	if err := s.db.FinalizeResult(ctx, electionID, version); err != nil {
		s.audit(ctx, audit.Event{
			ActorID:    userID,
			ActionType: types.ActionCountingFinalized,
			Level:      types.LevelError,
			Details: map[string]interface{}{
				"election_id": electionID.String(),
				"version":     version,
				"error":       err.Error(),
			},
		})
		return storageErr("cannot finalize result", err)
	}
	resultsFinalized.Inc()
	s.audit(ctx, audit.Event{
		ActorID:    userID,
		ActionType: types.ActionCountingFinalized,
		Level:      types.LevelInfo,
		Details: map[string]interface{}{
			"election_id": electionID.String(),
			"version":     version,
		},
	})
	return nil
}

// GetResults returns the requested result version, or the latest stored
// version when version is zero.
func (s *Service) GetResults(ctx context.Context, electionID uuid.UUID, version int) (*types.ElectionResult, error) {
	if electionID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty election id", ErrInvalidInput)
	}
	if version < 0 {
		return nil, fmt.Errorf("%w: negative version", ErrInvalidInput)
	}
	var result *types.ElectionResult
	var err error
	if version == 0 {
		result, err = s.db.LatestResult(ctx, electionID)
	} else {
		result, err = s.db.Result(ctx, electionID, version)
	}
	if err != nil {
		return nil, storageErr("cannot load result", err)
	}
	return result, nil
}

// audit records a ledger event and swallows any failure: counting is never
// blocked by audit I/O.
func (s *Service) audit(ctx context.Context, ev audit.Event) {
	if s.auditor == nil {
		return
	}
	if _, err := s.auditor.Append(ctx, ev); err != nil {
		auditAppendFailures.Inc()
		log.Warnf("%v: %v", ErrAudit, err)
	}
}

func isSeatAllocating(method string) bool {
	switch method {
	case types.MethodHareNiemeyer, types.MethodSainteLague, types.MethodHighestVotesAbsolute:
		return true
	}
	return false
}

// storageErr keeps sentinel kinds (NotFound, AlreadyFinalized) visible to
// errors.Is while tagging everything else as a storage failure.
func storageErr(msg string, err error) error {
	if errorIsKind(err) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, msg, err)
}

func errorIsKind(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrAlreadyFinalized, ErrInvalidInput,
		ErrConfiguration, ErrNotReady, ErrUnknownMethod} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
