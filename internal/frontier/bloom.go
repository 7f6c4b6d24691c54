package frontier

import (
	"hash/fnv"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// bloomFilter is a fast, probabilistic "might already be queued" check
// that sits in front of the exact dedup set. A negative answer is
// authoritative (the URL was never added); a positive answer must still
// be confirmed against the exact set, since bloom filters only produce
// false positives, never false negatives.
//
// Sizing follows the standard bit-array-size / hash-count formulas for a
// target false-positive rate, the same math
// original_source/src/crawler/url_management/queue.py's hand-rolled
// BloomFilter used, but built on a real bitset instead of a manually
// managed byte slice.
type bloomFilter struct {
	bits      *bitset.BitSet
	size      uint
	hashCount uint
}

// newBloomFilter sizes a filter for the given expected item count and
// target false-positive rate.
func newBloomFilter(capacity uint, falsePositiveRate float64) *bloomFilter {
	if capacity == 0 {
		capacity = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	m := optimalBitArraySize(capacity, falsePositiveRate)
	k := optimalHashCount(m, capacity)
	return &bloomFilter{
		bits:      bitset.New(m),
		size:      m,
		hashCount: k,
	}
}

func optimalBitArraySize(n uint, p float64) uint {
	m := -1 * float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)
	if m < 1 {
		m = 1
	}
	return uint(math.Ceil(m))
}

func optimalHashCount(m, n uint) uint {
	if n == 0 {
		return 1
	}
	k := (float64(m) / float64(n)) * math.Ln2
	if k < 1 {
		k = 1
	}
	return uint(math.Ceil(k))
}

// offsets derives hashCount independent bit positions for item using the
// standard double-hashing trick (two base hashes combined linearly),
// avoiding the cost of hashCount distinct hash functions.
func (b *bloomFilter) offsets(item string) []uint {
	h1 := fnv.New64a()
	h1.Write([]byte(item))
	sum1 := h1.Sum64()

	h2 := fnv.New64()
	h2.Write([]byte(item))
	sum2 := h2.Sum64()

	positions := make([]uint, b.hashCount)
	for i := uint(0); i < b.hashCount; i++ {
		combined := sum1 + uint64(i)*sum2
		positions[i] = uint(combined % uint64(b.size))
	}
	return positions
}

func (b *bloomFilter) add(item string) {
	for _, pos := range b.offsets(item) {
		b.bits.Set(pos)
	}
}

// mightContain returns false only when item is definitely absent.
func (b *bloomFilter) mightContain(item string) bool {
	for _, pos := range b.offsets(item) {
		if !b.bits.Test(pos) {
			return false
		}
	}
	return true
}
