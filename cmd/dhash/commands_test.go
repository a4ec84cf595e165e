package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sugawarayuuta/sonnet"

	"github.com/theflywheel/dhash"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	if err := setupLogging("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// useTable points the commands at a fresh file and captures their output.
func useTable(t *testing.T) *bytes.Buffer {
	t.Helper()
	opts = Options{
		File:      filepath.Join(t.TempDir(), "table.dht"),
		Capacity:  8,
		Threshold: 0.75,
	}
	buf := new(bytes.Buffer)
	out = buf
	t.Cleanup(func() { out = os.Stdout })
	return buf
}

func TestInsertSearchRemove(t *testing.T) {
	buf := useTable(t)

	for _, cmd := range []Insert{{Key: 1, Value: "Alice"}, {Key: 17, Value: "David"}} {
		if err := cmd.Execute(nil); err != nil {
			t.Fatalf("insert %d failed: %v", cmd.Key, err)
		}
	}

	if err := (&Search{Key: 17}).Execute(nil); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got := buf.String(); got != "David\n" {
		t.Errorf("Expected David, got %q", got)
	}

	buf.Reset()
	if err := (&Remove{Key: 17}).Execute(nil); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	buf.Reset()
	if err := (&Search{Key: 17}).Execute(nil); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got := buf.String(); got != dhash.NotFound+"\n" {
		t.Errorf("Expected sentinel after remove, got %q", got)
	}

	buf.Reset()
	if err := (&Remove{Key: 99}).Execute(nil); err != nil {
		t.Fatalf("remove of absent key failed: %v", err)
	}
	if !strings.Contains(buf.String(), "not present") {
		t.Errorf("Expected not present message, got %q", buf.String())
	}
}

func TestDumpAndProbe(t *testing.T) {
	buf := useTable(t)

	for _, cmd := range []Insert{{Key: 1, Value: "Alice"}, {Key: 17, Value: "David"}} {
		if err := cmd.Execute(nil); err != nil {
			t.Fatalf("insert %d failed: %v", cmd.Key, err)
		}
	}

	if err := (&Dump{}).Execute(nil); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	for _, line := range []string{"[1]: {1: 'Alice'}", "[5]: {17: 'David'}", "[0]: empty"} {
		if !strings.Contains(buf.String(), line) {
			t.Errorf("Dump output missing %q:\n%s", line, buf.String())
		}
	}

	buf.Reset()
	if err := (&Probe{Key: 17}).Execute(nil); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	want := "0: bucket 1 (key 1)\n1: bucket 5 (key 17)\n"
	if buf.String() != want {
		t.Errorf("Probe output mismatch:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestStatsJSON(t *testing.T) {
	buf := useTable(t)

	if err := (&Insert{Key: 3, Value: "Charlie"}).Execute(nil); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := (&Stats{JSON: true}).Execute(nil); err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var report statsReport
	if err := sonnet.Unmarshal(bytes.TrimSpace(buf.Bytes()), &report); err != nil {
		t.Fatalf("Failed to decode stats JSON %q: %v", buf.String(), err)
	}
	if report.Size != 1 || report.Capacity != 8 || report.File != opts.File {
		t.Errorf("Unexpected report %+v", report)
	}
	if report.Digest == "" {
		t.Error("Expected digest in report")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	useTable(t)

	if err := (&Fill{Count: 200, Seed: 7}).Execute(nil); err != nil {
		t.Fatalf("fill failed: %v", err)
	}
	original := dhash.New(dhash.DefaultOptions)
	if err := original.DeserializeFrom(opts.File); err != nil {
		t.Fatalf("Failed to load filled table: %v", err)
	}
	if original.Len() != 200 {
		t.Fatalf("Expected 200 entries after fill, got %d", original.Len())
	}

	compressed := filepath.Join(t.TempDir(), "table.sz")
	if err := (&Export{Output: compressed}).Execute(nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	opts.File = filepath.Join(t.TempDir(), "imported.dht")
	if err := (&Import{Input: compressed}).Execute(nil); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	imported := dhash.New(dhash.DefaultOptions)
	if err := imported.DeserializeFrom(opts.File); err != nil {
		t.Fatalf("Failed to load imported table: %v", err)
	}
	if imported.Digest() != original.Digest() {
		t.Error("Imported table differs from the exported one")
	}
}

func TestFillReportsMetrics(t *testing.T) {
	buf := useTable(t)

	if err := (&Fill{Count: 50, Seed: 1}).Execute(nil); err != nil {
		t.Fatalf("fill failed: %v", err)
	}
	for _, name := range []string{"dhash_inserts_total", "dhash_rehashes_total", "dhash_insert_probe_length"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("Fill output missing metric %s", name)
		}
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	useTable(t)

	path := filepath.Join(t.TempDir(), "garbage.sz")
	if err := os.WriteFile(path, []byte("not snappy"), 0o644); err != nil {
		t.Fatalf("Failed to write garbage: %v", err)
	}
	if err := (&Import{Input: path}).Execute(nil); err == nil {
		t.Error("Expected import of garbage to fail")
	}
	if _, err := os.Stat(opts.File); !os.IsNotExist(err) {
		t.Errorf("Expected no table file after failed import, stat returned %v", err)
	}
}

func TestFillReportsExistingTableState(t *testing.T) {
	buf := useTable(t)

	if err := (&Fill{Count: 100, Seed: 1}).Execute(nil); err != nil {
		t.Fatalf("first fill failed: %v", err)
	}
	buf.Reset()
	if err := (&Fill{Count: 3, Seed: 2}).Execute(nil); err != nil {
		t.Fatalf("second fill failed: %v", err)
	}

	table := dhash.New(dhash.DefaultOptions)
	if err := table.DeserializeFrom(opts.File); err != nil {
		t.Fatalf("Failed to load table: %v", err)
	}
	if table.Len() != 103 {
		t.Fatalf("Expected 103 entries after both fills, got %d", table.Len())
	}

	for _, line := range []string{
		fmt.Sprintf("dhash_capacity_buckets %d\n", table.Capacity()),
		fmt.Sprintf("dhash_size_entries %d\n", table.Len()),
	} {
		if !strings.Contains(buf.String(), line) {
			t.Errorf("Fill output missing %q:\n%s", line, buf.String())
		}
	}
}
