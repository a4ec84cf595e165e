package dhash

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("dhash")

// NotFound is the value returned by Value for an absent key.
const NotFound = "Not Found"

// maxInsertRetries bounds forced rehashes caused by an exhausted probe sequence.
const maxInsertRetries = 3

// ErrProbeExhausted is returned by Insert when no free bucket was reachable
// even after a forced rehash.
var ErrProbeExhausted = errors.New("dhash: probe sequence exhausted")

// slot is one bucket. A zero slot is empty.
type slot struct {
	key      int32
	value    []byte
	occupied bool
}

// Table is an open-addressing hash table keyed by int32 with byte-string values.
// Collisions are resolved with a key-dependent probe step. Removal leaves an
// empty bucket behind with no tombstone, and lookups stop at the first empty
// bucket, so a key placed past a removed one can become unreachable.
//
// A Table is not safe for concurrent use.
type Table struct {
	slots     []slot
	size      int
	threshold float64
	observer  Observer
}

// New creates an empty table from opts, clamping out-of-range values.
func New(opts Options) *Table {
	t := &Table{
		slots:     make([]slot, normalizeCapacity(opts.Capacity)),
		threshold: normalizeLoadFactor(opts.LoadFactor),
		observer:  opts.Observer,
	}
	if t.observer == nil {
		t.observer = nopObserver{}
	}
	return t
}

// Len returns the number of occupied buckets.
func (t *Table) Len() int { return t.size }

// Capacity returns the number of buckets.
func (t *Table) Capacity() int { return len(t.slots) }

// IsEmpty reports whether no bucket is occupied.
func (t *Table) IsEmpty() bool { return t.size == 0 }

// Threshold returns the load factor at which the table grows.
func (t *Table) Threshold() float64 { return t.threshold }

// LoadFactor returns Len()/Capacity().
func (t *Table) LoadFactor() float64 {
	return float64(t.size) / float64(len(t.slots))
}

// locate walks the probe sequence for key and stops at the first bucket that
// is empty or holds key. It returns that bucket, the number of attempts made
// and whether the key was found. idx is -1 when every attempt hit another key.
func (t *Table) locate(key int32) (idx, probes int, found bool) {
	seq := newProbeSequence(key, len(t.slots))
	for i, ok := seq.next(); ok; i, ok = seq.next() {
		probes++
		s := &t.slots[i]
		if !s.occupied {
			return i, probes, false
		}
		if s.key == key {
			return i, probes, true
		}
	}
	return -1, probes, false
}

// Insert stores value under key, overwriting the value of an existing key.
// The table doubles its capacity beforehand when needed so that the load
// factor stays below the threshold once the insert completes.
func (t *Table) Insert(key int32, value []byte) error {
	return t.insertWithRetry(key, value, 0)
}

func (t *Table) insertWithRetry(key int32, value []byte, retryCount int) error {
	if retryCount > maxInsertRetries {
		return fmt.Errorf("%w: key %d after %d forced rehashes", ErrProbeExhausted, key, maxInsertRetries)
	}

	if t.LoadFactor() >= t.threshold {
		if err := t.rehash(); err != nil {
			return fmt.Errorf("rehash failed: %w", err)
		}
	}

	idx, probes, found := t.locate(key)
	switch {
	case idx < 0:
		log.Debugf("Probe sequence for key %d exhausted at capacity %d, forcing rehash", key, len(t.slots))
		if err := t.rehash(); err != nil {
			return fmt.Errorf("rehash failed: %w", err)
		}
		return t.insertWithRetry(key, value, retryCount+1)

	case found:
		t.slots[idx].value = cloneBytes(value)
		t.observer.Inserted(probes, true)
		return nil
	}

	if float64(t.size+1)/float64(len(t.slots)) >= t.threshold {
		if err := t.rehash(); err != nil {
			return fmt.Errorf("rehash failed: %w", err)
		}
		return t.insertWithRetry(key, value, retryCount)
	}

	t.slots[idx] = slot{key: key, value: cloneBytes(value), occupied: true}
	t.size++
	t.observer.Inserted(probes, false)
	return nil
}

// Search returns a copy of the value stored under key.
// The walk stops at the first empty bucket of the probe sequence.
func (t *Table) Search(key int32) ([]byte, bool) {
	idx, _, found := t.locate(key)
	if !found {
		return nil, false
	}
	return cloneBytes(t.slots[idx].value), true
}

// Value is Search in sentinel form: it returns []byte(NotFound) for an absent key.
func (t *Table) Value(key int32) []byte {
	if v, ok := t.Search(key); ok {
		return v
	}
	return []byte(NotFound)
}

// Remove clears the bucket holding key and reports whether it was present.
// The bucket becomes empty; nothing is shifted into it.
func (t *Table) Remove(key int32) bool {
	idx, _, found := t.locate(key)
	if found {
		t.slots[idx] = slot{}
		t.size--
	}
	t.observer.Removed(found)
	return found
}

// Clear drops every entry and keeps the current capacity.
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i] = slot{}
	}
	t.size = 0
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
