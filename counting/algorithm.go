package counting

import (
	"fmt"

	"github.com/rneumann/election-sub003/types"
)

// Config carries the election parameters an algorithm may consult.
type Config struct {
	SeatsToFill        int
	MaxCumulativeVotes int
	TotalValidBallots  int64
	BallotStatistics   *types.BallotStatistics
	CountingMethod     string
}

// Input is the full input of one algorithm run: anonymised tallies plus the
// election configuration. Algorithms never see ballots or voters.
type Input struct {
	Votes  []types.AggregatedVote
	Config Config
}

// Algorithm is a pure counting function. Given identical input it must
// produce an identical result, including the order of the allocation.
type Algorithm func(in Input) (*types.CountingResult, error)

// validateSeatInput covers the checks shared by the seat-allocating methods.
func validateSeatInput(in Input) error {
	if in.Config.SeatsToFill < 1 {
		return fmt.Errorf("%w: seats_to_fill must be a positive integer, got %d",
			ErrInvalidInput, in.Config.SeatsToFill)
	}
	return validateVotes(in.Votes)
}

func validateVotes(votes []types.AggregatedVote) error {
	for _, v := range votes {
		if v.Votes < 0 {
			return fmt.Errorf("%w: negative vote count %d for list %d",
				ErrInvalidInput, v.Votes, v.ListNum)
		}
	}
	return nil
}

func totalVotes(votes []types.AggregatedVote) int64 {
	var total int64
	for _, v := range votes {
		total += v.Votes
	}
	return total
}
