// Package peterson implements Peterson's two-participant mutual exclusion lock.
//
// The lock arbitrates between exactly two goroutines identified by
// types.First and types.Second. It needs no compare-and-swap on the flags and
// no runtime mutex: two interest flags and one turn variable are enough.
//
// Go's sync/atomic operations are sequentially consistent, so every access
// below is at least as strong as the ordering it requires. The one access
// whose strength the proof depends on is the turn hand-off, which must stay a
// read-modify-write (Swap) so that both participants' hand-offs are totally
// ordered and each one observes the other's interest flag afterwards.
package peterson

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pixperk/peterson/pkg/types"
)

// Lock is a Peterson lock. The zero value is an unlocked lock with turn set
// to types.First. A Lock must not be copied after first use.
//
// Lock is not reentrant: acquiring twice with the same identity without a
// release in between spins forever.
type Lock struct {
	_ noCopy

	flag [2]atomic.Bool // flag[i] set while participant i requests or holds the lock
	turn atomic.Uint32  // index of the participant that yields on a tie
}

func New() *Lock {
	return &Lock{}
}

// Acquire blocks until id may enter the critical section.
func (l *Lock) Acquire(id types.Identity) {
	l.AcquireSpin(id)
}

// AcquireSpin is Acquire that also reports how many times the caller yielded
// the processor while waiting. A return of 0 means the lock was taken on the
// first check.
func (l *Lock) AcquireSpin(id types.Identity) int {
	self, other := id.Index(), id.Other().Index()

	//publish interest; only needs to be an untorn write, the swap below orders it
	l.flag[self].Store(true)

	//hand priority to the other side; must be a read-modify-write, a plain store
	//does not synchronize the two hand-offs with each other
	l.turn.Swap(uint32(other))

	yields := 0
	for l.flag[other].Load() && l.turn.Load() == uint32(other) {
		runtime.Gosched()
		yields++
	}

	return yields
}

// Release leaves the critical section. Writes made while holding the lock are
// visible to the other participant once it observes the cleared flag.
func (l *Lock) Release(id types.Identity) {
	l.flag[id.Index()].Store(false)
}

// Locker returns a sync.Locker that acquires and releases l as id.
func (l *Lock) Locker(id types.Identity) sync.Locker {
	return &locker{lock: l, id: id}
}

type locker struct {
	lock *Lock
	id   types.Identity
}

func (lk *locker) Lock()   { lk.lock.Acquire(lk.id) }
func (lk *locker) Unlock() { lk.lock.Release(lk.id) }

// noCopy lets go vet's copylocks check flag copies of Lock.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
