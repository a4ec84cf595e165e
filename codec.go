package dhash

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	// headerSize covers capacity (int32), size (int32) and threshold (float64).
	headerSize = 4 + 4 + 8

	// MaxCapacity bounds the bucket count accepted from a serialized header.
	MaxCapacity = 1 << 26
	// MaxValueLen bounds a single serialized value.
	MaxValueLen = 64 << 20
)

// ErrCorrupt is returned when serialized data is truncated or out of bounds.
var ErrCorrupt = errors.New("dhash: corrupt data")

// byteOrder follows the host: files are only portable between machines of the same endianness.
var byteOrder = binary.NativeEndian

// WriteTo encodes the table as
//
//	int32 capacity | int32 size | float64 threshold |
//	{int32 count, (int32 key, int32 len, [len]byte value) x count} x capacity
//
// in host byte order. count is 0 for an empty bucket and 1 otherwise.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	header := make([]byte, headerSize)
	byteOrder.PutUint32(header[0:4], uint32(int32(len(t.slots))))
	byteOrder.PutUint32(header[4:8], uint32(int32(t.size)))
	byteOrder.PutUint64(header[8:16], math.Float64bits(t.threshold))
	m, err := bw.Write(header)
	n += int64(m)
	if err != nil {
		return n, fmt.Errorf("failed to write header: %w", err)
	}

	var word [4]byte
	for i := range t.slots {
		s := &t.slots[i]
		if !s.occupied {
			byteOrder.PutUint32(word[:], 0)
			m, err = bw.Write(word[:])
			n += int64(m)
			if err != nil {
				return n, fmt.Errorf("failed to write bucket %d: %w", i, err)
			}
			continue
		}

		rec := make([]byte, 12, 12+len(s.value))
		byteOrder.PutUint32(rec[0:4], 1)
		byteOrder.PutUint32(rec[4:8], uint32(s.key))
		byteOrder.PutUint32(rec[8:12], uint32(int32(len(s.value))))
		rec = append(rec, s.value...)
		m, err = bw.Write(rec)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("failed to write bucket %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush: %w", err)
	}
	return n, nil
}

// ReadFrom replaces the table contents with a stream produced by WriteTo.
// Entries are restored at their stored bucket without rehashing, and the
// size is recounted rather than taken from the header. The table is left
// untouched if decoding fails. ReadFrom consumes exactly one table from r and
// does not buffer, so callers reading from slow sources should wrap r.
func (t *Table) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(cr, header); err != nil {
		return cr.n, corrupt("header", err)
	}
	capacity := int32(byteOrder.Uint32(header[0:4]))
	storedSize := int32(byteOrder.Uint32(header[4:8]))
	threshold := math.Float64frombits(byteOrder.Uint64(header[8:16]))

	if capacity < MinCapacity || capacity > MaxCapacity {
		return cr.n, fmt.Errorf("%w: capacity %d out of range [%d, %d]", ErrCorrupt, capacity, MinCapacity, MaxCapacity)
	}

	slots := make([]slot, capacity)
	size := 0
	var word [4]byte
	for i := range slots {
		if _, err := io.ReadFull(cr, word[:]); err != nil {
			return cr.n, corrupt(fmt.Sprintf("bucket %d count", i), err)
		}
		count := int32(byteOrder.Uint32(word[:]))
		switch count {
		case 0:
			continue
		case 1:
		default:
			return cr.n, fmt.Errorf("%w: bucket %d holds %d entries", ErrCorrupt, i, count)
		}

		var rec [8]byte
		if _, err := io.ReadFull(cr, rec[:]); err != nil {
			return cr.n, corrupt(fmt.Sprintf("bucket %d entry", i), err)
		}
		key := int32(byteOrder.Uint32(rec[0:4]))
		valueLen := int32(byteOrder.Uint32(rec[4:8]))
		if valueLen < 0 || valueLen > MaxValueLen {
			return cr.n, fmt.Errorf("%w: bucket %d value length %d", ErrCorrupt, i, valueLen)
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(cr, value); err != nil {
			return cr.n, corrupt(fmt.Sprintf("bucket %d value", i), err)
		}

		slots[i] = slot{key: key, value: value, occupied: true}
		size++
	}

	if int(storedSize) != size {
		log.Warningf("Header size %d disagrees with %d decoded entries, using the decoded count", storedSize, size)
	}

	t.slots = slots
	t.size = size
	t.threshold = normalizeLoadFactor(threshold)
	log.Debugf("Loaded table: capacity=%d, size=%d, threshold=%.2f", capacity, size, t.threshold)
	return cr.n, nil
}

// SerializeTo writes the table to path. The data goes to a temporary file
// that is synced and renamed over path.
func (t *Table) SerializeTo(path string) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := t.WriteTo(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// DeserializeFrom replaces the table contents with the file at path.
func (t *Table) DeserializeFrom(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := t.ReadFrom(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// corrupt wraps a read failure. Running out of input mid-record is reported
// as ErrCorrupt; other reader errors are passed through.
func corrupt(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: short read in %s: %w", ErrCorrupt, what, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("failed to read %s: %w", what, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
