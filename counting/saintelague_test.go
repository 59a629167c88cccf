package counting

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rneumann/election-sub003/types"
)

func TestSainteLague(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	result, err := sainteLague(Input{
		Votes:  votes(1, 4567, 2, 3891, 3, 2542),
		Config: Config{SeatsToFill: 5},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Algorithm, qt.Equals, types.MethodSainteLague)
	c.Assert(seatsOf(result), qt.DeepEquals, []int{2, 2, 1})
	c.Assert(sumSeats(result), qt.Equals, 5)
	c.Assert(result.TiesDetected, qt.IsFalse)
}

func TestSainteLagueDeterminism(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	first, err := sainteLague(Input{
		Votes:  votes(1, 4567, 2, 3891, 3, 2542),
		Config: Config{SeatsToFill: 5},
	})
	c.Assert(err, qt.IsNil)
	for i := 0; i < 16; i++ {
		again, err := sainteLague(Input{
			Votes:  votes(1, 4567, 2, 3891, 3, 2542),
			Config: Config{SeatsToFill: 5},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(again, qt.DeepEquals, first)
	}
}

func TestSainteLagueScoreTie(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	// both lists score 100 at the first step: lower list number wins the
	// seat and the tie is reported
	result, err := sainteLague(Input{
		Votes:  votes(1, 100, 2, 100),
		Config: Config{SeatsToFill: 1},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.TiesDetected, qt.IsTrue)
	c.Assert(seatsOf(result), qt.DeepEquals, []int{1, 0})
	c.Assert(result.TieInfo, qt.Contains, "list 1")
}

func TestSainteLagueSeatConservation(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	for _, tc := range []struct {
		votes []types.AggregatedVote
		seats int
	}{
		{votes(1, 53, 2, 24, 3, 23), 7},
		{votes(1, 1000, 2, 1), 9},
		{votes(1, 5, 2, 5, 3, 5), 6},
	} {
		result, err := sainteLague(Input{Votes: tc.votes, Config: Config{SeatsToFill: tc.seats}})
		c.Assert(err, qt.IsNil)
		c.Assert(sumSeats(result), qt.Equals, tc.seats)
	}
}

func TestSainteLagueZeroVotes(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	result, err := sainteLague(Input{
		Votes:  votes(1, 0, 2, 0),
		Config: Config{SeatsToFill: 4},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(seatsOf(result), qt.DeepEquals, []int{0, 0})
}

func TestSainteLagueInvalidInput(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	_, err := sainteLague(Input{Votes: votes(1, 10), Config: Config{SeatsToFill: -1}})
	c.Assert(err, qt.ErrorIs, ErrInvalidInput)
}
