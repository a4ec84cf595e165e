package dhash

const (
	// DefaultCapacity is the bucket count used when Options.Capacity is not positive.
	DefaultCapacity = 8
	// MinCapacity is the smallest usable bucket count; the step hash divides by capacity-1.
	MinCapacity = 2
	// DefaultLoadFactor is used when Options.LoadFactor falls outside (0.1, 1.0).
	DefaultLoadFactor = 0.75

	minLoadFactor = 0.1
	maxLoadFactor = 1.0
)

// Options configures a new Table.
type Options struct {
	// Capacity is the initial number of buckets.
	// Non-positive values select DefaultCapacity; 1 is raised to MinCapacity.
	Capacity int

	// LoadFactor is the occupancy ratio that triggers a rehash.
	// It must lie strictly between 0.1 and 1.0, otherwise DefaultLoadFactor is used.
	LoadFactor float64

	// Observer receives insert, remove and rehash events. Nil disables reporting.
	Observer Observer
}

// DefaultOptions selects 8 buckets and a 0.75 load factor.
var DefaultOptions = Options{
	Capacity:   DefaultCapacity,
	LoadFactor: DefaultLoadFactor,
}

func normalizeCapacity(capacity int) int {
	switch {
	case capacity <= 0:
		return DefaultCapacity
	case capacity < MinCapacity:
		return MinCapacity
	}
	return capacity
}

func normalizeLoadFactor(lf float64) float64 {
	if lf > minLoadFactor && lf < maxLoadFactor {
		return lf
	}
	return DefaultLoadFactor
}
