package counting

import (
	"fmt"
	"sort"

	"github.com/rneumann/election-sub003/types"
)

// highestVotesAbsolute ranks candidates by votes and elects those with an
// absolute majority of the valid ballots: votes > valid/2, compared in
// integer arithmetic as 2*votes > valid. When nobody reaches the threshold
// the result calls for a runoff between the two leading candidates. A tie
// exactly at the last seat (rank seats_to_fill against the next rank) is
// reported.
func highestVotesAbsolute(in Input) (*types.CountingResult, error) {
	if len(in.Votes) == 0 {
		return nil, fmt.Errorf("%w: majority election without candidates", ErrInvalidInput)
	}
	if err := validateSeatInput(in); err != nil {
		return nil, err
	}
	seats := in.Config.SeatsToFill
	valid := in.Config.TotalValidBallots
	total := totalVotes(in.Votes)

	// rank by votes descending, ascending list number on equal votes
	ranked := make([]int, len(in.Votes))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		va, vb := in.Votes[ranked[a]], in.Votes[ranked[b]]
		if va.Votes != vb.Votes {
			return va.Votes > vb.Votes
		}
		return va.ListNum < vb.ListNum
	})

	result := &types.CountingResult{
		Algorithm:   types.MethodHighestVotesAbsolute,
		SeatsToFill: seats,
		TotalVotes:  total,
		Allocation:  make([]types.SeatAllocation, len(in.Votes)),
	}
	anyElected := false
	for rank, idx := range ranked {
		v := in.Votes[idx]
		elected := 2*v.Votes > valid && rank < seats
		if elected {
			anyElected = true
		}
		result.Allocation[idx] = types.SeatAllocation{
			ListNum:   v.ListNum,
			Firstname: v.Firstname,
			Lastname:  v.Lastname,
			Votes:     v.Votes,
			Elected:   elected,
		}
		if elected {
			result.Allocation[idx].Seats = 1
		}
	}

	if seats < len(ranked) &&
		in.Votes[ranked[seats-1]].Votes == in.Votes[ranked[seats]].Votes {
		result.TiesDetected = true
		result.TieInfo = fmt.Sprintf("lists %d and %d tie at %d votes at rank %d",
			in.Votes[ranked[seats-1]].ListNum, in.Votes[ranked[seats]].ListNum,
			in.Votes[ranked[seats-1]].Votes, seats)
	}

	if !anyElected {
		result.RequiresRunoff = true
		runoff := ranked
		if len(runoff) > 2 {
			runoff = runoff[:2]
		}
		for _, idx := range runoff {
			result.RunoffCandidates = append(result.RunoffCandidates, in.Votes[idx].ListNum)
		}
	}
	return result, nil
}
