/*
Package dhash provides an open-addressing hash table with int32 keys, byte-string
values and a fixed-layout binary file format.

Basic usage:

	import "github.com/theflywheel/dhash"

	t := dhash.New(dhash.DefaultOptions) // 8 buckets, grow at load factor 0.75

	if err := t.Insert(1, []byte("Alice")); err != nil {
		log.Fatal(err)
	}

	if v, ok := t.Search(1); ok {
		fmt.Println("Value:", string(v))
	}

	if err := t.SerializeTo("table.bin"); err != nil {
		log.Fatal(err)
	}

Features:

  - Double hashing: h1 = |key| mod capacity picks the first bucket and
    h2 = 1 + |key| mod (capacity-1) is the probe step
  - Capacity doubles before an insert would reach the load factor threshold
  - Removal empties the bucket without a tombstone
  - Binary persistence in host byte order, compatible with existing files

Implementation Details:

Every operation walks the probe sequence (h1 + i*h2) mod capacity for at most
capacity attempts. Insert stops at the first bucket that is empty or holds the
key. Search and Remove stop at the first empty bucket as well, which means that
removing a key can hide another key whose probe sequence passed through the
removed bucket. Stats reports how many entries are in that state.

If an insert runs out of probe attempts the table is rehashed and the insert
retried, up to three times, before ErrProbeExhausted is returned.

The file format is

	int32 capacity | int32 size | float64 threshold |
	{int32 count, (int32 key, int32 len, [len]byte value) x count} x capacity

Loading restores every entry at its stored bucket, so capacity is preserved and
no rehash happens during a load.
*/
package dhash
