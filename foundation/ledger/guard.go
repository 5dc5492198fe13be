package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrReentrancy is returned when a named critical section is entered while
// an invocation is already in flight. It is a security fault, not a
// retryable contention case: the call aborts without touching state.
var ErrReentrancy = errors.New("reentrancy detected")

// Names of the guarded ledger operations.
const (
	opAddBlock = "addBlock"
	opTransfer = "transfer"
)

// guardSet holds one atomic flag per guarded operation name. The flag is
// acquired with a compare-and-swap on entry and released unconditionally on
// every exit path through the returned release func.
type guardSet struct {
	flags map[string]*atomic.Bool
	ev    func(v string, args ...any)
}

func newGuardSet(ev func(v string, args ...any), names ...string) *guardSet {
	flags := make(map[string]*atomic.Bool, len(names))
	for _, name := range names {
		flags[name] = &atomic.Bool{}
	}

	return &guardSet{flags: flags, ev: ev}
}

// enter acquires the flag for the named operation. On a detected re-entry
// it logs at critical severity and returns ErrReentrancy.
func (g *guardSet) enter(name string, shardID int) (release func(), err error) {
	flag, exists := g.flags[name]
	if !exists {
		return nil, fmt.Errorf("unknown guarded operation %q", name)
	}

	if !flag.CompareAndSwap(false, true) {
		g.ev("ledger: guard: REENTRANCY DETECTED in %s: shard[%d]", name, shardID)
		return nil, ErrReentrancy
	}

	return func() { flag.Store(false) }, nil
}
