package counting

import (
	"fmt"

	"github.com/rneumann/election-sub003/types"
)

// yesNoReferendum tallies votes per option keyword and declares the option
// with the strictly greatest count the outcome. An exact tie between the
// two leading options is reported and leaves the outcome empty. Seats play
// no role for referendums.
func yesNoReferendum(in Input) (*types.CountingResult, error) {
	if err := validateVotes(in.Votes); err != nil {
		return nil, err
	}
	total := totalVotes(in.Votes)
	result := &types.CountingResult{
		Algorithm:   types.MethodYesNoReferendum,
		SeatsToFill: 0,
		TotalVotes:  total,
		Allocation:  make([]types.SeatAllocation, len(in.Votes)),
	}

	// aggregate by keyword, keeping first-seen input order
	counts := make(map[string]int64, len(in.Votes))
	var keywords []string
	for i, v := range in.Votes {
		result.Allocation[i] = types.SeatAllocation{
			ListNum:   v.ListNum,
			Firstname: v.Firstname,
			Lastname:  v.Lastname,
			Votes:     v.Votes,
		}
		if _, seen := counts[v.Firstname]; !seen {
			keywords = append(keywords, v.Firstname)
		}
		counts[v.Firstname] += v.Votes
	}
	result.Options = make([]types.OptionCount, len(keywords))
	for i, kw := range keywords {
		result.Options[i] = types.OptionCount{Keyword: kw, Votes: counts[kw]}
	}
	if len(keywords) == 0 {
		return result, nil
	}

	winner, runnerUp := "", ""
	for _, kw := range keywords {
		switch {
		case winner == "" || counts[kw] > counts[winner]:
			runnerUp = winner
			winner = kw
		case runnerUp == "" || counts[kw] > counts[runnerUp]:
			runnerUp = kw
		}
	}
	if runnerUp != "" && counts[winner] == counts[runnerUp] {
		result.TiesDetected = true
		result.TieInfo = fmt.Sprintf("options %q and %q tie at %d votes",
			winner, runnerUp, counts[winner])
		return result, nil
	}
	result.Outcome = winner
	return result, nil
}
