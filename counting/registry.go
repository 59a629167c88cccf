package counting

import (
	"fmt"

	"github.com/rneumann/election-sub003/types"
)

// algorithms maps the configured counting method of an election to its
// implementation. Adding a method is purely additive.
var algorithms = map[string]Algorithm{
	types.MethodHareNiemeyer:         hareNiemeyer,
	types.MethodSainteLague:          sainteLague,
	types.MethodYesNoReferendum:      yesNoReferendum,
	types.MethodHighestVotesAbsolute: highestVotesAbsolute,
}

// AlgorithmFor resolves a counting method name.
func AlgorithmFor(method string) (Algorithm, error) {
	algo, ok := algorithms[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return algo, nil
}
