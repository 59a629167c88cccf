package counting

import (
	"fmt"
	"time"

	"github.com/rneumann/election-sub003/types"
)

// ValidateForCounting checks the readiness preconditions of an election,
// in order: the voting period has ended, a type and a counting method are
// configured, and no result has been finalised yet. It never mutates state;
// success is silent.
func ValidateForCounting(election *types.Election, hasFinalResult bool) error {
	if election.End.After(time.Now()) {
		return fmt.Errorf("%w: election %q has not ended yet (ends %s)",
			ErrNotReady, election.Info, election.End.Format(time.RFC3339))
	}
	if election.ElectionType == "" {
		return fmt.Errorf("%w: election %q has no election type", ErrConfiguration, election.Info)
	}
	if election.CountingMethod == "" {
		return fmt.Errorf("%w: election %q has no counting method", ErrConfiguration, election.Info)
	}
	if hasFinalResult {
		return fmt.Errorf("%w: election %q already has a final result",
			ErrAlreadyFinalized, election.Info)
	}
	return nil
}
