package audit

import (
	"context"
	"fmt"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

// Violation kinds reported by the verifier.
const (
	ChainBroken  = "CHAIN_BROKEN"
	HashMismatch = "HASH_MISMATCH"
	BadSignature = "BAD_SIGNATURE"
)

// Violation identifies one invalid ledger entry.
type Violation struct {
	ID   int64
	Kind string
}

func (v Violation) String() string {
	return fmt.Sprintf("id=%d kind=%s", v.ID, v.Kind)
}

const verifierPageSize = 512

// Verifier walks the ledger in ascending id order and re-derives every
// entry: the chain link, the content hash and the signature. It only reads,
// so it takes no locks and can run offline against a ledger copy.
type Verifier struct {
	db        database.Database
	publicKey []byte
}

func NewVerifier(db database.Database, publicKeyPEM []byte) *Verifier {
	return &Verifier{db: db, publicKey: publicKeyPEM}
}

// Run scans the whole ledger and returns every violation found. An empty
// ledger is valid. A violating entry still feeds its stored entry_hash into
// the chain, so a single bad row does not cascade into CHAIN_BROKEN for
// everything after it.
func (v *Verifier) Run(ctx context.Context) ([]Violation, error) {
	var violations []Violation
	prevHash := GenesisHash
	afterID := int64(0)
	for {
		entries, err := v.db.AuditEntries(ctx, afterID, verifierPageSize)
		if err != nil {
			return nil, fmt.Errorf("cannot read audit entries: %w", err)
		}
		if len(entries) == 0 {
			return violations, nil
		}
		for _, entry := range entries {
			violations = append(violations, v.checkEntry(&entry, prevHash)...)
			prevHash = entry.EntryHash
			afterID = entry.ID
		}
	}
}

func (v *Verifier) checkEntry(entry *types.AuditEntry, expectedPrev string) []Violation {
	var violations []Violation
	if entry.PrevHash != expectedPrev {
		violations = append(violations, Violation{ID: entry.ID, Kind: ChainBroken})
	}
	timestamp := entry.Timestamp.UTC().Format(TimestampFormat)
	computed, err := EntryHash(timestamp, entry.ActorIDHash, entry.ActorRole,
		entry.ActionType, entry.Level, entry.Details, entry.PrevHash)
	if err != nil || computed != entry.EntryHash {
		violations = append(violations, Violation{ID: entry.ID, Kind: HashMismatch})
	}
	if !Verify(entry.EntryHash, entry.Signature, v.publicKey) {
		violations = append(violations, Violation{ID: entry.ID, Kind: BadSignature})
	}
	return violations
}
