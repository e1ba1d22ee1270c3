package pmtiles

import "fmt"

// readUvarint decodes a little-endian base-128 varint from data starting at
// *pos, advancing *pos past the bytes consumed. It mirrors the reference
// decoder bit for bit, including its split between a four-byte fast path
// and a slower remainder path for values spanning more than four bytes.
func readUvarint(data []byte, pos *int) (uint64, error) {
	if *pos >= len(data) {
		return 0, fmt.Errorf("%w: varint: out-of-bounds data access", ErrMalformed)
	}
	b := uint64(data[*pos])
	*pos++
	val := b & 0x7f
	if b < 0x80 {
		return val, nil
	}
	for i := 1; i < 4; i++ {
		if *pos >= len(data) {
			return 0, fmt.Errorf("%w: varint: out-of-bounds data access", ErrMalformed)
		}
		b = uint64(data[*pos])
		*pos++
		val |= (b & 0x7f) << (7 * uint(i))
		if b < 0x80 {
			return val, nil
		}
	}
	if *pos >= len(data) {
		return 0, fmt.Errorf("%w: varint: out-of-bounds data access", ErrMalformed)
	}
	b = uint64(data[*pos])
	val |= (b & 0x0f) << 28
	return readUvarintRemainder(data, pos, val)
}

func readUvarintRemainder(data []byte, pos *int, val uint64) (uint64, error) {
	if *pos >= len(data) {
		return 0, fmt.Errorf("%w: varint: out-of-bounds data access", ErrMalformed)
	}
	b := uint64(data[*pos])
	*pos++
	high := (b & 0x70) >> 4
	if b < 0x80 {
		return val | high<<32, nil
	}
	if *pos >= len(data) {
		return 0, fmt.Errorf("%w: varint: out-of-bounds data access", ErrMalformed)
	}
	b = uint64(data[*pos])
	*pos++
	high |= (b & 0x7f) << 3

	for i := 1; i < 5; i++ {
		if b < 0x80 {
			return val | high<<32, nil
		}
		if *pos >= len(data) {
			return 0, fmt.Errorf("%w: varint: out-of-bounds data access", ErrMalformed)
		}
		b = uint64(data[*pos])
		*pos++
		high |= (b & 0x7f) << uint(3+7*i)
	}
	if b < 0x80 {
		return val | high<<32, nil
	}
	return 0, fmt.Errorf("%w: varint: value spans more than 10 bytes", ErrMalformed)
}
