package dhash

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Range calls fn for every entry in ascending bucket order until fn returns false.
// fn must not modify the table.
func (t *Table) Range(fn func(key int32, value []byte) bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.occupied && !fn(s.key, s.value) {
			return
		}
	}
}

// Bucket returns the entry stored in bucket i. ok is false for an empty bucket
// or an index outside [0, Capacity()).
func (t *Table) Bucket(i int) (key int32, value []byte, ok bool) {
	if i < 0 || i >= len(t.slots) || !t.slots[i].occupied {
		return 0, nil, false
	}
	s := &t.slots[i]
	return s.key, cloneBytes(s.value), true
}

// Dump writes one line per bucket: "[i]: empty" or "[i]: {key: 'value'}".
func (t *Table) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Capacity: %d, Size: %d, Load Factor: %.2f\n",
		len(t.slots), t.size, t.LoadFactor()); err != nil {
		return err
	}
	for i := range t.slots {
		s := &t.slots[i]
		var err error
		if s.occupied {
			_, err = fmt.Fprintf(w, "[%d]: {%d: '%s'}\n", i, s.key, s.value)
		} else {
			_, err = fmt.Fprintf(w, "[%d]: empty\n", i)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes bucket usage.
type Stats struct {
	Size         int     `json:"size"`
	Capacity     int     `json:"capacity"`
	LoadFactor   float64 `json:"load_factor"`
	Threshold    float64 `json:"threshold"`
	EmptyBuckets int     `json:"empty_buckets"`
	EmptyPercent float64 `json:"empty_percent"`
	// MaxProbeLength is the largest number of attempts needed to reach any
	// stored entry along its probe sequence.
	MaxProbeLength int `json:"max_probe_length"`
	// Unreachable counts entries that a lookup would miss because an empty
	// bucket precedes them on their probe sequence.
	Unreachable int `json:"unreachable"`
}

// Stats walks every bucket and returns usage statistics.
func (t *Table) Stats() Stats {
	st := Stats{
		Size:       t.size,
		Capacity:   len(t.slots),
		LoadFactor: t.LoadFactor(),
		Threshold:  t.threshold,
	}
	for i := range t.slots {
		s := &t.slots[i]
		if !s.occupied {
			st.EmptyBuckets++
			continue
		}
		if d := t.distance(s.key, i); d > st.MaxProbeLength {
			st.MaxProbeLength = d
		}
		if idx, _, found := t.locate(s.key); !found || idx != i {
			st.Unreachable++
		}
	}
	st.EmptyPercent = float64(st.EmptyBuckets) * 100 / float64(len(t.slots))
	return st
}

// distance returns the 1-based attempt at which key's probe sequence reaches
// bucket target, or 0 if it never does.
func (t *Table) distance(key int32, target int) int {
	seq := newProbeSequence(key, len(t.slots))
	attempt := 0
	for idx, ok := seq.next(); ok; idx, ok = seq.next() {
		attempt++
		if idx == target {
			return attempt
		}
	}
	return 0
}

// Digest returns the xxhash64 of the table's serialized form.
// Two tables with equal digests serialize to identical bytes.
func (t *Table) Digest() uint64 {
	d := xxhash.New()
	// xxhash.Digest.Write never fails.
	_, _ = t.WriteTo(d)
	return d.Sum64()
}
