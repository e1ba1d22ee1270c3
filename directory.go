package pmtiles

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Entry is one row of a directory: either a terminal entry covering
// RunLength consecutive tile ids starting at TileID, all pointing at the
// same payload range, or — when RunLength is 0 — a leaf pointer into the
// leaf-directory region.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint64
	RunLength uint64
}

func (e Entry) isLeaf() bool { return e.RunLength == 0 }

// Directory holds the decoded entries of a root or leaf directory,
// ordered by strictly increasing TileID.
type Directory struct {
	entries []Entry
}

// decodeDirectory parses the four-varint-stream directory encoding of a
// decompressed directory blob: delta-encoded tile ids, then run lengths,
// then lengths, then zero-sentinel offsets.
func decodeDirectory(data []byte) (Directory, error) {
	br := bufio.NewReader(bytes.NewReader(data))

	n, err := binary.ReadUvarint(br)
	if err != nil {
		return Directory{}, fmt.Errorf("%w: directory: entry count: %v", ErrMalformed, err)
	}

	entries := make([]Entry, n)

	var tileID uint64
	for i := range entries {
		delta, err := binary.ReadUvarint(br)
		if err != nil {
			return Directory{}, fmt.Errorf("%w: directory: tile id %d: %v", ErrMalformed, i, err)
		}
		tileID += delta
		entries[i].TileID = tileID
	}

	for i := range entries {
		rl, err := binary.ReadUvarint(br)
		if err != nil {
			return Directory{}, fmt.Errorf("%w: directory: run length %d: %v", ErrMalformed, i, err)
		}
		entries[i].RunLength = rl
	}

	for i := range entries {
		l, err := binary.ReadUvarint(br)
		if err != nil {
			return Directory{}, fmt.Errorf("%w: directory: length %d: %v", ErrMalformed, i, err)
		}
		entries[i].Length = l
	}

	for i := range entries {
		v, err := binary.ReadUvarint(br)
		if err != nil {
			return Directory{}, fmt.Errorf("%w: directory: offset %d: %v", ErrMalformed, i, err)
		}
		if v == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + entries[i-1].Length
		} else if v > 0 {
			entries[i].Offset = v - 1
		}
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].TileID <= entries[i-1].TileID {
			return Directory{}, fmt.Errorf("%w: directory: tile ids not strictly increasing at index %d", ErrMalformed, i)
		}
	}

	return Directory{entries: entries}, nil
}

// encodeDirectory is the encode-side counterpart of decodeDirectory. The
// core never writes archives; this exists purely so tests can build
// fixtures in memory.
func encodeDirectory(entries []Entry) []byte {
	var buf bytes.Buffer
	var varintBuf [binary.MaxVarintLen64]byte

	putUvarint := func(v uint64) {
		n := binary.PutUvarint(varintBuf[:], v)
		buf.Write(varintBuf[:n])
	}

	putUvarint(uint64(len(entries)))

	var prevID uint64
	for i, e := range entries {
		if i == 0 {
			putUvarint(e.TileID)
		} else {
			putUvarint(e.TileID - prevID)
		}
		prevID = e.TileID
	}
	for _, e := range entries {
		putUvarint(e.RunLength)
	}
	for _, e := range entries {
		putUvarint(e.Length)
	}

	var prevOffset, prevLength uint64
	for i, e := range entries {
		if i > 0 && e.Offset == prevOffset+prevLength {
			putUvarint(0)
		} else {
			putUvarint(e.Offset + 1)
		}
		prevOffset, prevLength = e.Offset, e.Length
	}

	return buf.Bytes()
}

// findTile locates the entry governing target within the directory.
//
// The comparison stays in native uint64 throughout: casting tile ids to
// int64 for a subtraction-based comparator breaks once a tile id reaches
// 2^63, because the subtraction wraps through negative territory. Unsigned
// comparison has no such boundary, so that is what this does.
func (d Directory) findTile(target uint64) (Entry, error) {
	entries := d.entries
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}

	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].TileID >= target
	})

	if i < len(entries) && entries[i].TileID == target {
		return entries[i], nil
	}
	if i == 0 {
		return Entry{}, ErrNotFound
	}

	predecessor := entries[i-1]
	if predecessor.isLeaf() {
		return predecessor, nil
	}
	if target-predecessor.TileID < predecessor.RunLength {
		return predecessor, nil
	}
	return Entry{}, ErrNotFound
}
