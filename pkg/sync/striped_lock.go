package sync

import (
	"fmt"
	base "sync"
)

const pointsPerStripe = 200

// StripedLock maps an unbounded key space onto a fixed number of mutexes, so
// operations on the same key are serialized while unrelated keys mostly
// proceed in parallel.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

// NewStripedLock returns a StripedLock with the given number of stripes
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	shards := make(map[string]interface{}, stripes)
	for i := 0; i < int(stripes); i++ {
		shards[fmt.Sprintf("stripe%d", i)] = i
	}

	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(shards, pointsPerStripe),
	}
}

// Get returns the mutex guarding key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.shard(key).(int)]
}
