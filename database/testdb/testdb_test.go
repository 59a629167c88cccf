package testdb

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

func TestCreateResultConcurrent(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	db := New()
	id := uuid.New()
	db.Elections[id] = &types.Election{ID: id, Info: "test"}

	const workers = 16
	var wg sync.WaitGroup
	versions := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, version, err := db.CreateResult(context.Background(), &types.ElectionResult{
				ElectionID: id,
				ResultData: []byte("{}"),
				CountedBy:  "tester",
				CountedAt:  time.Now(),
			})
			c.Check(err, qt.IsNil)
			versions <- version
		}()
	}
	wg.Wait()
	close(versions)

	seen := make(map[int]bool)
	for v := range versions {
		c.Assert(seen[v], qt.IsFalse)
		seen[v] = true
	}
	for v := 1; v <= workers; v++ {
		c.Assert(seen[v], qt.IsTrue)
	}
}

func TestFinalizeResultLatch(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	db := New()
	id := uuid.New()
	db.Elections[id] = &types.Election{ID: id, Info: "test"}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := db.CreateResult(ctx, &types.ElectionResult{ElectionID: id})
		c.Assert(err, qt.IsNil)
	}
	c.Assert(db.FinalizeResult(ctx, id, 1), qt.IsNil)
	c.Assert(db.FinalizeResult(ctx, id, 2), qt.ErrorIs, database.ErrAlreadyFinalized)
	c.Assert(db.FinalizeResult(ctx, id, 1), qt.ErrorIs, database.ErrAlreadyFinalized)
}

func TestAppendAuditEntryChaining(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	db := New()
	ctx := context.Background()

	hashes := []string{"aa", "bb", "cc"}
	for _, h := range hashes {
		entryHash := h
		_, err := db.AppendAuditEntry(ctx, func(prevHash string) (*types.AuditEntry, error) {
			return &types.AuditEntry{PrevHash: prevHash, EntryHash: entryHash}, nil
		})
		c.Assert(err, qt.IsNil)
	}

	c.Assert(db.Audit[0].PrevHash, qt.Equals, strings.Repeat("0", 64))
	c.Assert(db.Audit[1].PrevHash, qt.Equals, "aa")
	c.Assert(db.Audit[2].PrevHash, qt.Equals, "bb")

	entries, err := db.AuditEntries(ctx, 1, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 2)
	c.Assert(entries[0].EntryHash, qt.Equals, "bb")
}
