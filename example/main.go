package main

import (
	"fmt"
	"log"
	"os"

	"github.com/theflywheel/dhash"
)

func main() {
	const path = "example.dht"

	// Clean up previous example
	os.Remove(path)

	table := dhash.New(dhash.DefaultOptions)
	fmt.Printf("Table created with capacity %d\n", table.Capacity())

	// 17 collides with 1 and is placed along its probe sequence
	entries := []struct {
		key  int32
		name string
	}{
		{1, "Alice"},
		{2, "Bob"},
		{3, "Charlie"},
		{17, "David"},
	}
	for _, e := range entries {
		if err := table.Insert(e.key, []byte(e.name)); err != nil {
			log.Fatalf("Failed to insert key %d: %v", e.key, err)
		}
	}

	if err := table.Dump(os.Stdout); err != nil {
		log.Fatalf("Failed to dump table: %v", err)
	}

	fmt.Printf("Search 2: %s\n", table.Value(2))
	fmt.Printf("Search 10: %s\n", table.Value(10))

	table.Remove(2)
	fmt.Println("After removing key 2:")
	if err := table.Dump(os.Stdout); err != nil {
		log.Fatalf("Failed to dump table: %v", err)
	}

	// Round trip through a file
	if err := table.SerializeTo(path); err != nil {
		log.Fatalf("Failed to save table: %v", err)
	}
	restored := dhash.New(dhash.DefaultOptions)
	if err := restored.DeserializeFrom(path); err != nil {
		log.Fatalf("Failed to load table: %v", err)
	}
	fmt.Printf("Restored key 17 => %s\n", restored.Value(17))

	st := restored.Stats()
	fmt.Printf("Size: %d, Capacity: %d, Empty buckets: %.1f%%, Max probe length: %d\n",
		st.Size, st.Capacity, st.EmptyPercent, st.MaxProbeLength)

	fmt.Println("Example completed successfully")
}
