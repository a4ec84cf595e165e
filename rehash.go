package dhash

// rehash doubles the capacity and re-inserts every live entry, in ascending
// bucket order, through the regular insert path. The new bucket array is only
// installed once every entry has been placed.
func (t *Table) rehash() error {
	oldCapacity := len(t.slots)
	log.Debugf("Starting rehash: capacity=%d, size=%d", oldCapacity, t.size)

	next := &Table{
		slots:     make([]slot, oldCapacity*2),
		threshold: t.threshold,
		observer:  nopObserver{},
	}

	moved := 0
	for i := range t.slots {
		s := &t.slots[i]
		if !s.occupied {
			continue
		}
		if err := next.insertWithRetry(s.key, s.value, 0); err != nil {
			return err
		}
		moved++
	}

	t.slots = next.slots
	t.size = next.size

	log.Debugf("Rehash complete: capacity=%d, size=%d", len(t.slots), t.size)
	t.observer.Rehashed(oldCapacity, len(t.slots), moved)
	return nil
}
