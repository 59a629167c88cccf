package counting

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestAbsoluteMajorityRunoff(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	// 120 of 250 valid ballots is not an absolute majority (needs > 125)
	result, err := highestVotesAbsolute(Input{
		Votes:  votes(1, 120, 2, 90, 3, 40),
		Config: Config{SeatsToFill: 1, TotalValidBallots: 250},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.RequiresRunoff, qt.IsTrue)
	c.Assert(result.RunoffCandidates, qt.DeepEquals, []int{1, 2})
	c.Assert(result.TiesDetected, qt.IsFalse)
	for _, a := range result.Allocation {
		c.Assert(a.Elected, qt.IsFalse)
	}
}

func TestAbsoluteMajorityWinner(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	result, err := highestVotesAbsolute(Input{
		Votes:  votes(1, 90, 2, 140, 3, 20),
		Config: Config{SeatsToFill: 1, TotalValidBallots: 250},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.RequiresRunoff, qt.IsFalse)
	c.Assert(result.Allocation[1].Elected, qt.IsTrue)
	c.Assert(result.Allocation[1].Seats, qt.Equals, 1)
	c.Assert(result.Allocation[0].Elected, qt.IsFalse)
	c.Assert(result.Allocation[2].Elected, qt.IsFalse)
}

func TestAbsoluteMajorityExactHalfLoses(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	// exactly half the valid ballots is not strictly greater than half
	result, err := highestVotesAbsolute(Input{
		Votes:  votes(1, 125, 2, 100),
		Config: Config{SeatsToFill: 1, TotalValidBallots: 250},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.RequiresRunoff, qt.IsTrue)
	c.Assert(result.RunoffCandidates, qt.DeepEquals, []int{1, 2})
}

func TestAbsoluteMajorityTieAtCutoff(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	// ranks 1 and 2 hold equal votes with one seat to fill
	result, err := highestVotesAbsolute(Input{
		Votes:  votes(1, 100, 2, 100, 3, 50),
		Config: Config{SeatsToFill: 1, TotalValidBallots: 250},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.TiesDetected, qt.IsTrue)
	c.Assert(result.TieInfo, qt.Contains, "lists 1 and 2")
}

func TestAbsoluteMajorityNoCandidates(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	_, err := highestVotesAbsolute(Input{Config: Config{SeatsToFill: 1}})
	c.Assert(err, qt.ErrorIs, ErrInvalidInput)
}
