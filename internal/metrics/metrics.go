package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/theflywheel/dhash"
)

// Collector turns table events into prometheus metrics.
// It satisfies dhash.Observer.
type Collector struct {
	Inserts      *prometheus.CounterVec
	Removes      *prometheus.CounterVec
	Rehashes     prometheus.Counter
	Capacity     prometheus.Gauge
	Size         prometheus.Gauge
	ProbeLength  prometheus.Histogram
	MovedEntries prometheus.Counter
}

// NewCollector builds the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhash_inserts_total",
			Help: "Total number of inserts by result",
		}, []string{"result"}),

		Removes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhash_removes_total",
			Help: "Total number of removes by result",
		}, []string{"result"}),

		Rehashes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhash_rehashes_total",
			Help: "Total number of capacity doublings",
		}),

		Capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dhash_capacity_buckets",
			Help: "Bucket count of the observed table",
		}),

		Size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dhash_size_entries",
			Help: "Occupied buckets of the observed table",
		}),

		ProbeLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dhash_insert_probe_length",
			Help:    "Probe attempts needed to place an insert",
			Buckets: prometheus.ExponentialBuckets(1, 2.0, 10),
		}),

		MovedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhash_rehash_moved_entries_total",
			Help: "Entries re-inserted by rehashes",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.Inserts, c.Removes, c.Rehashes, c.Capacity, c.Size, c.ProbeLength, c.MovedEntries,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe sets the capacity and size gauges from t. Call it after attaching
// the collector to a table that already holds entries.
func (c *Collector) Observe(t *dhash.Table) {
	c.Capacity.Set(float64(t.Capacity()))
	c.Size.Set(float64(t.Len()))
}

// Inserted records the probe length of an insert and counts it as new or update.
func (c *Collector) Inserted(probes int, updated bool) {
	c.ProbeLength.Observe(float64(probes))
	if updated {
		c.Inserts.WithLabelValues("update").Inc()
		return
	}
	c.Inserts.WithLabelValues("new").Inc()
	c.Size.Inc()
}

// Removed counts a remove as a hit or a miss.
func (c *Collector) Removed(found bool) {
	if found {
		c.Removes.WithLabelValues("hit").Inc()
		c.Size.Dec()
		return
	}
	c.Removes.WithLabelValues("miss").Inc()
}

// Rehashed counts a doubling and the entries it moved.
func (c *Collector) Rehashed(oldCapacity, newCapacity, moved int) {
	c.Rehashes.Inc()
	c.Capacity.Set(float64(newCapacity))
	c.MovedEntries.Add(float64(moved))
}
