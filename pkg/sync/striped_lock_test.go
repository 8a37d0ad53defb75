package sync

import (
	"fmt"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_SameKeySameMutex(t *testing.T) {
	l := NewStripedLock(8)
	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("card%d", i))
		assert.True(t, l.Get(key) == l.Get(key))
	}
}

func TestStripedLock_SerializesKey(t *testing.T) {
	workers := 64
	increments := 1000

	l := NewStripedLock(4)
	counts := make([]int, workers)

	start := make(chan struct{})
	var wg base.WaitGroup
	for w := 0; w < workers; w++ {
		key := []byte(fmt.Sprintf("card%d", w))
		for i := 0; i < increments; i++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				<-start

				mu := l.Get(key)
				mu.Lock()
				counts[w]++
				mu.Unlock()
			}(w)
		}
	}

	close(start)
	wg.Wait()

	for _, count := range counts {
		assert.Equal(t, increments, count)
	}
}

func TestRing_Distribution(t *testing.T) {
	shards := map[string]interface{}{"a": 0, "b": 1, "c": 2}
	r := newRing(shards, pointsPerStripe)

	seen := make(map[interface{}]int)
	for i := 0; i < 3000; i++ {
		seen[r.shard([]byte(fmt.Sprintf("key%d", i)))]++
	}

	assert.Len(t, seen, 3)
	for _, count := range seen {
		assert.True(t, count > 500)
	}
}
