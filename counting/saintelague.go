package counting

import (
	"fmt"
	"strings"

	"github.com/rneumann/election-sub003/types"
)

// sainteLague allocates seats one at a time by the highest-averages method
// with odd divisors 1, 3, 5, … At every step the list with the highest
// score votes/(2*seats+1) wins the seat. Score ties are decided towards the
// lower list number and reported.
//
// Scores are compared by cross multiplication in integer arithmetic, so
// equal averages are detected exactly instead of within float epsilon.
func sainteLague(in Input) (*types.CountingResult, error) {
	if err := validateSeatInput(in); err != nil {
		return nil, err
	}
	seats := in.Config.SeatsToFill
	total := totalVotes(in.Votes)
	result := &types.CountingResult{
		Algorithm:   types.MethodSainteLague,
		SeatsToFill: seats,
		TotalVotes:  total,
		Allocation:  make([]types.SeatAllocation, len(in.Votes)),
	}
	for i, v := range in.Votes {
		result.Allocation[i] = types.SeatAllocation{
			ListNum:   v.ListNum,
			Firstname: v.Firstname,
			Lastname:  v.Lastname,
			Votes:     v.Votes,
		}
	}
	if total == 0 || len(in.Votes) == 0 {
		return result, nil
	}

	allocated := make([]int, len(in.Votes))
	var tieSteps []string
	for step := 0; step < seats; step++ {
		best := -1
		tiedAtBest := false
		for i, v := range in.Votes {
			if v.Votes == 0 {
				continue
			}
			if best < 0 {
				best = i
				continue
			}
			// v.Votes/(2*allocated[i]+1) vs votes[best]/(2*allocated[best]+1)
			lhs := v.Votes * int64(2*allocated[best]+1)
			rhs := in.Votes[best].Votes * int64(2*allocated[i]+1)
			switch {
			case lhs > rhs:
				best = i
				tiedAtBest = false
			case lhs == rhs:
				tiedAtBest = true
				if v.ListNum < in.Votes[best].ListNum {
					best = i
				}
			}
		}
		if best < 0 {
			break
		}
		if tiedAtBest {
			result.TiesDetected = true
			tieSteps = append(tieSteps,
				fmt.Sprintf("seat %d assigned to list %d by lowest list number",
					step+1, in.Votes[best].ListNum))
		}
		allocated[best]++
	}
	for i := range result.Allocation {
		result.Allocation[i].Seats = allocated[i]
	}
	if len(tieSteps) > 0 {
		result.TieInfo = "score tie: " + strings.Join(tieSteps, "; ")
	}
	return result, nil
}
