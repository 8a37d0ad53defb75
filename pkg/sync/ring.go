package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring mapping arbitrary keys onto a fixed set of
// shard values. Each shard is placed on the ring replicas times.
type ring struct {
	points *treemap.Map

	// first is the value at the smallest point, used when a key hashes past
	// the last point and wraps around.
	first interface{}
}

func newRing(shards map[string]interface{}, replicas uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)
	for name, value := range shards {
		nameHash, _ := murmur3.Sum128([]byte(name))

		seed := make([]byte, 12)
		binary.LittleEndian.PutUint64(seed, nameHash)
		for i := uint32(0); i < uint32(replicas); i++ {
			binary.LittleEndian.PutUint32(seed[8:], i)
			point, _ := murmur3.Sum128(seed)
			points.Put(int64(point), value)
		}
	}

	_, first := points.Min()
	return &ring{
		points: points,
		first:  first,
	}
}

func (r *ring) shard(key []byte) interface{} {
	hash, _ := murmur3.Sum128(key)
	if _, value := r.points.Ceiling(int64(hash)); value != nil {
		return value
	}
	return r.first
}
