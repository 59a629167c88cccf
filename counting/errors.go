package counting

import (
	"errors"

	"github.com/rneumann/election-sub003/database"
)

// Error kinds surfaced by the counting core. Callers branch with errors.Is;
// every error returned by this package wraps exactly one of them.
var (
	// ErrInvalidInput marks a malformed argument or algorithm config
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing election or result
	ErrNotFound = database.ErrNotFound
	// ErrConfiguration marks an election missing type, counting method,
	// seats to fill, or a majority election without candidates
	ErrConfiguration = errors.New("election configuration error")
	// ErrNotReady marks an election whose voting period has not ended
	ErrNotReady = errors.New("election not ready for counting")
	// ErrAlreadyFinalized marks an election with a final result
	ErrAlreadyFinalized = database.ErrAlreadyFinalized
	// ErrUnknownMethod marks an unregistered counting method
	ErrUnknownMethod = errors.New("unknown counting method")
	// ErrStorage marks a failed storage operation
	ErrStorage = errors.New("storage error")
	// ErrAudit marks a failed audit append; it is logged, never returned
	// to counting callers
	ErrAudit = errors.New("audit error")
)
