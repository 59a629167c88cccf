package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

// GenesisHash is the prev_hash of the first ledger entry.
var GenesisHash = strings.Repeat("0", 64)

// TimestampFormat is the fixed-width ISO-8601 UTC form hashed into every
// entry. Fixed width (millisecond precision, literal Z) so reformatting a
// timestamp read back from the database reproduces the exact string.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Event is what callers hand to the ledger. Plain identifiers are hashed
// before storage and never retained.
type Event struct {
	ActorID    string
	ActorRole  string
	IP         string
	SessionID  string
	ActionType string
	Level      string
	Details    map[string]interface{}
}

// Logger appends hash-chained, signed entries to the audit ledger. The
// storage layer serialises writers with an exclusive table lock, so the
// chain cannot fork even across processes.
type Logger struct {
	db     database.Database
	signer *Signer
	salt   string
}

func NewLogger(db database.Database, signer *Signer, salt string) *Logger {
	if salt == "" {
		salt = "default_salt"
		log.Warn("audit salt not configured, using default (tests only)")
	}
	return &Logger{db: db, signer: signer, salt: salt}
}

// Append writes one entry to the ledger and returns its storage id. The
// hash chain is extended inside the storage transaction that holds the
// table lock, between reading the current tip and inserting.
func (l *Logger) Append(ctx context.Context, ev Event) (int64, error) {
	if ev.ActionType == "" {
		return 0, fmt.Errorf("audit event without action type")
	}
	if ev.Level == "" {
		ev.Level = types.LevelInfo
	}
	id, err := l.db.AppendAuditEntry(ctx, func(prevHash string) (*types.AuditEntry, error) {
		return l.buildEntry(ev, prevHash)
	})
	if err != nil {
		return 0, fmt.Errorf("cannot append audit entry: %w", err)
	}
	return id, nil
}

func (l *Logger) buildEntry(ev Event, prevHash string) (*types.AuditEntry, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	timestamp := now.Format(TimestampFormat)

	var actorIDHash, actorRole, ipHash, sessionHash *string
	if ev.ActorID != "" {
		h := HashHex(ev.ActorID + l.salt)
		actorIDHash = &h
	}
	if ev.ActorRole != "" {
		r := ev.ActorRole
		actorRole = &r
	}
	if ev.IP != "" {
		h := HashHex(ev.IP + l.salt)
		ipHash = &h
	}
	if ev.SessionID != "" {
		h := HashHex(ev.SessionID)
		sessionHash = &h
	}

	details := ev.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	detailsCanonical, err := Canonical(details)
	if err != nil {
		return nil, fmt.Errorf("cannot canonicalise details: %w", err)
	}
	entryHash, err := EntryHash(timestamp, actorIDHash, actorRole, ev.ActionType,
		ev.Level, []byte(detailsCanonical), prevHash)
	if err != nil {
		return nil, err
	}

	return &types.AuditEntry{
		Timestamp:   now,
		ActorIDHash: actorIDHash,
		ActorRole:   actorRole,
		IPHash:      ipHash,
		SessionHash: sessionHash,
		ActionType:  ev.ActionType,
		Level:       ev.Level,
		Details:     []byte(detailsCanonical),
		PrevHash:    prevHash,
		EntryHash:   entryHash,
		Signature:   l.signer.Sign(entryHash),
	}, nil
}

// EntryHash computes the hash of one ledger entry from its hashed payload
// fields. IP and session hashes are stored but deliberately excluded. The
// verifier recomputes hashes through this same function.
func EntryHash(timestamp string, actorIDHash, actorRole *string, actionType,
	level string, details []byte, prevHash string) (string, error) {
	detailsValue, err := decodeNumber(orEmptyObject(details))
	if err != nil {
		return "", fmt.Errorf("cannot decode details: %w", err)
	}
	payload := map[string]interface{}{
		"timestamp":     timestamp,
		"actor_id_hash": ptrOrNil(actorIDHash),
		"actor_role":    ptrOrNil(actorRole),
		"action_type":   actionType,
		"level":         level,
		"details":       detailsValue,
		"prev_hash":     prevHash,
	}
	canonical, err := Canonical(payload)
	if err != nil {
		return "", fmt.Errorf("cannot canonicalise payload: %w", err)
	}
	return HashHex(canonical), nil
}

func orEmptyObject(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func ptrOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
