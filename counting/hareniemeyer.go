package counting

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rneumann/election-sub003/types"
)

// hareNiemeyer allocates seats by the largest-remainder method: every list
// gets the floor of its exact quota, then the leftover seats go to the
// largest fractional remainders. Remainder ties at the cutoff are reported,
// not resolved; the deterministic pick is ascending list number.
func hareNiemeyer(in Input) (*types.CountingResult, error) {
	if err := validateSeatInput(in); err != nil {
		return nil, err
	}
	seats := in.Config.SeatsToFill
	total := totalVotes(in.Votes)
	result := &types.CountingResult{
		Algorithm:   types.MethodHareNiemeyer,
		SeatsToFill: seats,
		TotalVotes:  total,
		Allocation:  make([]types.SeatAllocation, len(in.Votes)),
	}
	if total == 0 {
		for i, v := range in.Votes {
			result.Allocation[i] = zeroAllocation(v)
		}
		return result, nil
	}

	floors := make([]int, len(in.Votes))
	remainders := make([]float64, len(in.Votes))
	assigned := 0
	for i, v := range in.Votes {
		quota := float64(v.Votes) * float64(seats) / float64(total)
		floors[i] = int(math.Floor(quota))
		remainders[i] = quota - float64(floors[i])
		assigned += floors[i]
		result.Allocation[i] = types.SeatAllocation{
			ListNum:   v.ListNum,
			Firstname: v.Firstname,
			Lastname:  v.Lastname,
			Votes:     v.Votes,
			Seats:     floors[i],
			Quota:     strconv.FormatFloat(quota, 'f', 3, 64),
			Remainder: strconv.FormatFloat(remainders[i], 'f', 3, 64),
		}
	}

	bonus := seats - assigned
	if bonus <= 0 {
		return result, nil
	}
	// rank lists for the bonus seats: largest remainder first, then
	// ascending list number for reproducibility
	order := make([]int, len(in.Votes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if remainders[order[a]] != remainders[order[b]] {
			return remainders[order[a]] > remainders[order[b]]
		}
		return in.Votes[order[a]].ListNum < in.Votes[order[b]].ListNum
	})
	for _, idx := range order[:bonus] {
		result.Allocation[idx].Seats++
	}

	// a tie exists when more lists share the cutoff remainder than there
	// are bonus seats left at that remainder value
	cutoff := remainders[order[bonus-1]]
	var tied []int
	above := 0
	for _, idx := range order {
		if remainders[idx] == cutoff {
			tied = append(tied, in.Votes[idx].ListNum)
		} else if remainders[idx] > cutoff {
			above++
		}
	}
	if len(tied) > bonus-above {
		sort.Ints(tied)
		result.TiesDetected = true
		result.TieInfo = fmt.Sprintf("remainder tie at %s between lists %s for %d remaining seat(s)",
			strconv.FormatFloat(cutoff, 'f', 3, 64), joinInts(tied), bonus-above)
	}
	return result, nil
}

func zeroAllocation(v types.AggregatedVote) types.SeatAllocation {
	return types.SeatAllocation{
		ListNum:   v.ListNum,
		Firstname: v.Firstname,
		Lastname:  v.Lastname,
		Votes:     v.Votes,
		Quota:     "0.000",
		Remainder: "0.000",
	}
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
