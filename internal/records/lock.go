package records

import (
	"context"
	"sync"

	"github.com/psiclin/psiclin/internal/model"
)

// lockTable serializes mutations per record id.
//
// Each id maps to a one-token channel acting as a mutex that can be waited
// on with a context. Entries are reference-counted and removed when the
// last interested caller releases, so the table stays proportional to the
// number of records with in-flight mutations, not the number of records.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	token chan struct{}
	refs  int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the record's lock is free or ctx expires. On success
// it returns a release function; on expiry it returns a ConflictError.
func (t *lockTable) acquire(ctx context.Context, entity, id string) (func(), error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &lockEntry{token: make(chan struct{}, 1)}
		e.token <- struct{}{}
		t.entries[id] = e
	}
	e.refs++
	t.mu.Unlock()

	select {
	case <-e.token:
		return func() {
			e.token <- struct{}{}
			t.unref(id, e)
		}, nil
	case <-ctx.Done():
		t.unref(id, e)
		return nil, model.NewConflict(entity, id)
	}
}

func (t *lockTable) unref(id string, e *lockEntry) {
	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, id)
	}
	t.mu.Unlock()
}
