package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sugawarayuuta/sonnet"

	"github.com/theflywheel/dhash"
	"github.com/theflywheel/dhash/internal/metrics"
)

type Insert struct {
	Key   int32  `short:"k" long:"key" description:"key to store" required:"true"`
	Value string `short:"v" long:"value" description:"value to store" required:"true"`
}

type Search struct {
	Key int32 `short:"k" long:"key" description:"key to look up" required:"true"`
}

type Remove struct {
	Key int32 `short:"k" long:"key" description:"key to remove" required:"true"`
}

type Dump struct{}

type Stats struct {
	JSON bool `short:"j" long:"json" description:"print statistics as JSON"`
}

type Probe struct {
	Key int32 `short:"k" long:"key" description:"key whose probe sequence to print" required:"true"`
}

type Fill struct {
	Count int   `short:"n" long:"count" description:"number of random keys to insert" default:"1000"`
	Seed  int64 `long:"seed" description:"random seed" default:"1"`
}

type Export struct {
	Output string `short:"o" long:"output" description:"path of the compressed copy" required:"true"`
}

type Import struct {
	Input string `short:"i" long:"input" description:"path of a compressed table" required:"true"`
}

var (
	insertCmd Insert
	searchCmd Search
	removeCmd Remove
	dumpCmd   Dump
	statsCmd  Stats
	probeCmd  Probe
	fillCmd   Fill
	exportCmd Export
	importCmd Import
)

// loadTable opens the configured table file, or returns an empty table
// built from the command line options if the file does not exist.
func loadTable(observer dhash.Observer) (*dhash.Table, error) {
	table := dhash.New(dhash.Options{
		Capacity:   opts.Capacity,
		LoadFactor: opts.Threshold,
		Observer:   observer,
	})

	if _, err := os.Stat(opts.File); os.IsNotExist(err) {
		log.Infof("No table at %s, starting with capacity %d", opts.File, table.Capacity())
		return table, nil
	}
	if err := table.DeserializeFrom(opts.File); err != nil {
		log.Error(err)
		return nil, err
	}
	log.Debugf("Loaded %s: size=%d, capacity=%d", opts.File, table.Len(), table.Capacity())
	return table, nil
}

func saveTable(table *dhash.Table) error {
	if err := table.SerializeTo(opts.File); err != nil {
		log.Error(err)
		return err
	}
	log.Infof("Saved %s: size=%d, capacity=%d", opts.File, table.Len(), table.Capacity())
	return nil
}

func (x *Insert) Execute(args []string) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}
	if err := table.Insert(x.Key, []byte(x.Value)); err != nil {
		log.Error(err)
		return err
	}
	return saveTable(table)
}

func (x *Search) Execute(args []string) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", table.Value(x.Key))
	return nil
}

func (x *Remove) Execute(args []string) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}
	if !table.Remove(x.Key) {
		fmt.Fprintf(out, "Key %d not present\n", x.Key)
		return nil
	}
	fmt.Fprintf(out, "Removed key %d\n", x.Key)
	return saveTable(table)
}

func (x *Dump) Execute(args []string) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}

	empty := color.New(color.Faint)
	occupied := color.New(color.FgGreen)

	fmt.Fprintf(out, "Capacity: %d, Size: %d, Load Factor: %.2f\n",
		table.Capacity(), table.Len(), table.LoadFactor())
	for i := 0; i < table.Capacity(); i++ {
		key, value, ok := table.Bucket(i)
		if !ok {
			empty.Fprintf(out, "[%d]: empty\n", i)
			continue
		}
		occupied.Fprintf(out, "[%d]: {%d: '%s'}\n", i, key, value)
	}
	return nil
}

type statsReport struct {
	dhash.Stats
	Digest string `json:"digest"`
	File   string `json:"file"`
}

func (x *Stats) Execute(args []string) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}

	report := statsReport{
		Stats:  table.Stats(),
		Digest: strconv.FormatUint(table.Digest(), 16),
		File:   opts.File,
	}

	if x.JSON {
		b, err := sonnet.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", b)
		return nil
	}

	fmt.Fprintf(out, "Size: %d\n", report.Size)
	fmt.Fprintf(out, "Capacity: %d\n", report.Capacity)
	fmt.Fprintf(out, "Load Factor: %.2f (threshold %.2f)\n", report.LoadFactor, report.Threshold)
	fmt.Fprintf(out, "Empty Buckets: %d (%.2f%%)\n", report.EmptyBuckets, report.EmptyPercent)
	fmt.Fprintf(out, "Max Probe Length: %d\n", report.MaxProbeLength)
	fmt.Fprintf(out, "Unreachable Entries: %d\n", report.Unreachable)
	fmt.Fprintf(out, "Digest: %s\n", report.Digest)
	return nil
}

func (x *Probe) Execute(args []string) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}
	for i, idx := range table.Probe(x.Key) {
		key, _, ok := table.Bucket(idx)
		if !ok {
			fmt.Fprintf(out, "%d: bucket %d (empty)\n", i, idx)
			return nil
		}
		fmt.Fprintf(out, "%d: bucket %d (key %d)\n", i, idx, key)
		if key == x.Key {
			return nil
		}
	}
	fmt.Fprintf(out, "probe sequence exhausted after %d attempts\n", table.Capacity())
	return nil
}

func (x *Fill) Execute(args []string) error {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	table, err := loadTable(collector)
	if err != nil {
		return err
	}
	collector.Observe(table)

	rng := rand.New(rand.NewSource(x.Seed))
	for i := 0; i < x.Count; i++ {
		key := rng.Int31()
		if rng.Intn(2) == 0 {
			key = -key
		}
		if err := table.Insert(key, []byte(strconv.Itoa(i))); err != nil {
			log.Error(err)
			return err
		}
	}
	if err := saveTable(table); err != nil {
		return err
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}

func (x *Export) Execute(args []string) error {
	// Decode first so a corrupt table is never exported.
	if _, err := loadTable(nil); err != nil {
		return err
	}

	src, err := os.Open(opts.File)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(x.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	w := snappy.NewBufferedWriter(dst)
	n, err := io.Copy(w, src)
	if err != nil {
		dst.Close()
		return fmt.Errorf("failed to compress table: %w", err)
	}
	if err := w.Close(); err != nil {
		dst.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	log.Infof("Exported %d bytes from %s to %s", n, opts.File, x.Output)
	return nil
}

func (x *Import) Execute(args []string) error {
	src, err := os.Open(x.Input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	table := dhash.New(dhash.DefaultOptions)
	if _, err := table.ReadFrom(bufio.NewReader(snappy.NewReader(src))); err != nil {
		log.Error(err)
		return fmt.Errorf("failed to decode %s: %w", x.Input, err)
	}
	return saveTable(table)
}
