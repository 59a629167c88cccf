package counting

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/rneumann/election-sub003/types"
)

func endedElection() *types.Election {
	return &types.Election{
		Info:           "Student parliament 2026",
		ElectionType:   types.TypeProportional,
		CountingMethod: types.MethodHareNiemeyer,
		SeatsToFill:    10,
		Start:          time.Now().Add(-48 * time.Hour),
		End:            time.Now().Add(-24 * time.Hour),
	}
}

func TestValidateForCounting(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(ValidateForCounting(endedElection(), false), qt.IsNil)

	running := endedElection()
	running.End = time.Now().Add(time.Hour)
	c.Assert(ValidateForCounting(running, false), qt.ErrorIs, ErrNotReady)

	untyped := endedElection()
	untyped.ElectionType = ""
	c.Assert(ValidateForCounting(untyped, false), qt.ErrorIs, ErrConfiguration)

	noMethod := endedElection()
	noMethod.CountingMethod = ""
	c.Assert(ValidateForCounting(noMethod, false), qt.ErrorIs, ErrConfiguration)

	c.Assert(ValidateForCounting(endedElection(), true), qt.ErrorIs, ErrAlreadyFinalized)
}

func TestValidateOrder(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	// a still running election reports NotReady even when it is also
	// misconfigured: the checks run in order
	broken := endedElection()
	broken.End = time.Now().Add(time.Hour)
	broken.ElectionType = ""
	c.Assert(ValidateForCounting(broken, true), qt.ErrorIs, ErrNotReady)
}
