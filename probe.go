package dhash

// primaryHash picks the first bucket for key: |key| mod capacity.
func primaryHash(key int32, capacity int) int {
	return int(abs64(key) % int64(capacity))
}

// stepHash is the probe stride for key: 1 + |key| mod (capacity-1).
// The result is always in [1, capacity-1]. It is not forced to be coprime with
// capacity, so a sequence may revisit buckets before exhausting its budget.
func stepHash(key int32, capacity int) int {
	return int(1 + abs64(key)%int64(capacity-1))
}

// abs64 widens before negating so math.MinInt32 does not overflow.
func abs64(key int32) int64 {
	k := int64(key)
	if k < 0 {
		return -k
	}
	return k
}

// probeSequence walks index(i) = (h1 + i*h2) mod capacity for i in [0, capacity).
type probeSequence struct {
	index    int
	step     int
	capacity int
	attempt  int
}

func newProbeSequence(key int32, capacity int) probeSequence {
	return probeSequence{
		index:    primaryHash(key, capacity),
		step:     stepHash(key, capacity),
		capacity: capacity,
	}
}

// next returns the next candidate bucket, or false once capacity attempts were made.
func (p *probeSequence) next() (int, bool) {
	if p.attempt >= p.capacity {
		return 0, false
	}
	idx := p.index
	p.index = (p.index + p.step) % p.capacity
	p.attempt++
	return idx, true
}

// Probe returns the bucket indices examined for key at the current capacity,
// in the order insert, search and remove visit them.
func (t *Table) Probe(key int32) []int {
	seq := newProbeSequence(key, len(t.slots))
	out := make([]int, 0, len(t.slots))
	for idx, ok := seq.next(); ok; idx, ok = seq.next() {
		out = append(out, idx)
	}
	return out
}
