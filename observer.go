package dhash

// Observer is notified of structural events on a Table.
// Implementations must not call back into the table.
type Observer interface {
	// Inserted reports a completed insert: how many probe attempts it took to
	// find the slot and whether an existing key was overwritten.
	Inserted(probes int, updated bool)
	// Removed reports a remove call and whether a key was cleared.
	Removed(found bool)
	// Rehashed reports a completed capacity doubling and the number of entries moved.
	Rehashed(oldCapacity, newCapacity, moved int)
}

type nopObserver struct{}

func (nopObserver) Inserted(int, bool)     {}
func (nopObserver) Removed(bool)           {}
func (nopObserver) Rehashed(int, int, int) {}
