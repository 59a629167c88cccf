package types

import (
	"time"

	"github.com/google/uuid"
)

// Election types as configured by the import collaborator
const (
	TypeProportional = "proportional"
	TypeMajorityVote = "majority_vote"
	TypeReferendum   = "referendum"
)

// Counting methods
const (
	MethodHareNiemeyer         = "hare_niemeyer"
	MethodSainteLague          = "sainte_lague"
	MethodYesNoReferendum      = "yes_no_referendum"
	MethodHighestVotesAbsolute = "highest_votes_absolute"
)

// Audit action types emitted by the counting core
const (
	ActionCountingPerformed = "COUNTING_PERFORMED"
	ActionCountingFinalized = "COUNTING_FINALIZED"
)

// Audit levels
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Election is the configuration row the import collaborator creates.
// The counting core only ever reads it.
type Election struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Info               string    `json:"info" db:"info"`
	ElectionType       string    `json:"electionType" db:"election_type"`
	CountingMethod     string    `json:"countingMethod" db:"counting_method"`
	SeatsToFill        int       `json:"seatsToFill" db:"seats_to_fill"`
	VotesPerBallot     int       `json:"votesPerBallot" db:"votes_per_ballot"`
	MaxCumulativeVotes int       `json:"maxCumulativeVotes" db:"max_cumulative_votes"`
	Start              time.Time `json:"start" db:"start"`
	End                time.Time `json:"end" db:"end"`
}

// AggregatedVote is a per-list (or per-option) tally with no link to
// individual ballots or voters. For referendums Firstname carries the
// option keyword and Lastname is empty.
type AggregatedVote struct {
	ListNum   int    `json:"listnum" db:"listnum"`
	Firstname string `json:"firstname" db:"firstname"`
	Lastname  string `json:"lastname" db:"lastname"`
	Votes     int64  `json:"votes" db:"votes"`
}

// BallotStatistics carries the ballot-box totals needed for majority
// thresholds. A missing row defaults every field to zero.
type BallotStatistics struct {
	Election       uuid.UUID `json:"election" db:"election"`
	TotalBallots   int64     `json:"totalBallots" db:"total_ballots"`
	ValidBallots   int64     `json:"validBallots" db:"valid_ballots"`
	InvalidBallots int64     `json:"invalidBallots" db:"invalid_ballots"`
}

// ElectionResult is one versioned counting outcome. ResultData holds the
// algorithm output as JSON; its shape is discriminated by the algorithm id.
type ElectionResult struct {
	ID           int64     `json:"id" db:"id"`
	ElectionID   uuid.UUID `json:"electionId" db:"election_id"`
	Version      int       `json:"version" db:"version"`
	ResultData   []byte    `json:"resultData" db:"result_data"`
	IsFinal      bool      `json:"isFinal" db:"is_final"`
	TestElection bool      `json:"testElection" db:"test_election"`
	CountedBy    string    `json:"countedBy" db:"counted_by"`
	CountedAt    time.Time `json:"countedAt" db:"counted_at"`
}

// SeatAllocation is one row of a counting result, preserving the input
// identifiers. Quota and Remainder are rendered as fixed-precision strings
// so results are stable across runs.
type SeatAllocation struct {
	ListNum   int    `json:"listnum"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Votes     int64  `json:"votes"`
	Seats     int    `json:"seats"`
	Quota     string `json:"quota,omitempty"`
	Remainder string `json:"remainder,omitempty"`
	Elected   bool   `json:"elected,omitempty"`
}

// OptionCount is a per-keyword tally of a referendum.
type OptionCount struct {
	Keyword string `json:"keyword"`
	Votes   int64  `json:"votes"`
}

// CountingResult is the structured output of a counting algorithm. The
// Algorithm field discriminates which of the optional sections is
// populated: Allocation for seat-allocating methods, Options/Outcome for
// referendums, RequiresRunoff/RunoffCandidates for absolute majority.
type CountingResult struct {
	Algorithm        string           `json:"algorithm"`
	SeatsToFill      int              `json:"seats_to_fill"`
	TotalVotes       int64            `json:"total_votes"`
	Allocation       []SeatAllocation `json:"allocation"`
	TiesDetected     bool             `json:"ties_detected"`
	TieInfo          string           `json:"tie_info,omitempty"`
	Options          []OptionCount    `json:"options,omitempty"`
	Outcome          string           `json:"outcome,omitempty"`
	RequiresRunoff   bool             `json:"requires_runoff,omitempty"`
	RunoffCandidates []int            `json:"runoff_candidates,omitempty"`
}

// AuditEntry is one row of the hash-chained audit ledger. IPHash and
// SessionHash are stored but not part of the hashed payload.
type AuditEntry struct {
	ID          int64     `json:"id" db:"id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	ActorIDHash *string   `json:"actorIdHash" db:"actor_id_hash"`
	ActorRole   *string   `json:"actorRole" db:"actor_role"`
	IPHash      *string   `json:"ipHash" db:"ip_hash"`
	SessionHash *string   `json:"sessionHash" db:"session_hash"`
	ActionType  string    `json:"actionType" db:"action_type"`
	Level       string    `json:"level" db:"level"`
	Details     []byte    `json:"details" db:"details"`
	PrevHash    string    `json:"prevHash" db:"prev_hash"`
	EntryHash   string    `json:"entryHash" db:"entry_hash"`
	Signature   string    `json:"signature" db:"signature"`
}

// CountingSummary is what PerformCounting returns to the caller.
type CountingSummary struct {
	Success      bool      `json:"success"`
	ResultID     int64     `json:"result_id"`
	Version      int       `json:"version"`
	TiesDetected bool      `json:"ties_detected"`
	CountedAt    time.Time `json:"counted_at"`
	Algorithm    string    `json:"algorithm"`
	TestElection bool      `json:"test_election"`
}
