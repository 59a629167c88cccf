package counting

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rneumann/election-sub003/types"
)

func TestAlgorithmFor(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	for _, method := range []string{
		types.MethodHareNiemeyer,
		types.MethodSainteLague,
		types.MethodYesNoReferendum,
		types.MethodHighestVotesAbsolute,
	} {
		algo, err := AlgorithmFor(method)
		c.Assert(err, qt.IsNil, qt.Commentf("method %s", method))
		c.Assert(algo, qt.Not(qt.IsNil))
	}
	_, err := AlgorithmFor("dhondt")
	c.Assert(err, qt.ErrorIs, ErrUnknownMethod)
	_, err = AlgorithmFor("")
	c.Assert(err, qt.ErrorIs, ErrUnknownMethod)
}
