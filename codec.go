package mdbxkv

import (
	"encoding/binary"
	"fmt"
)

// IntCodec encodes fixed-width unsigned integers for use as keys or
// values. Big-endian encodings sort numerically under the default
// lexicographic comparator; IntegerKey databases compare in native
// order instead and pair with U64LE on little-endian machines.
type IntCodec struct {
	order binary.ByteOrder
	width int
}

var (
	U64BE = IntCodec{order: binary.BigEndian, width: 8}
	U64LE = IntCodec{order: binary.LittleEndian, width: 8}
	U32BE = IntCodec{order: binary.BigEndian, width: 4}
	U32LE = IntCodec{order: binary.LittleEndian, width: 4}
	U16BE = IntCodec{order: binary.BigEndian, width: 2}
	U16LE = IntCodec{order: binary.LittleEndian, width: 2}
)

// Width returns the encoded size in bytes.
func (c IntCodec) Width() int { return c.width }

// Encode returns x in the codec's fixed width. Values that do not fit
// are truncated by the byte order, so callers keep 32-bit codecs to
// 32-bit values.
func (c IntCodec) Encode(x uint64) []byte {
	b := make([]byte, c.width)
	switch c.width {
	case 2:
		c.order.PutUint16(b, uint16(x))
	case 4:
		c.order.PutUint32(b, uint32(x))
	default:
		c.order.PutUint64(b, x)
	}
	return b
}

// Decode parses a value written by Encode. A length mismatch fails with
// a BadValSize error.
func (c IntCodec) Decode(b []byte) (uint64, error) {
	if len(b) != c.width {
		return 0, &Error{
			Kind: KindBadValSize,
			Op:   "codec_decode",
			Code: codeBadValSize,
			Err:  fmt.Errorf("want %d bytes, got %d", c.width, len(b)),
		}
	}
	switch c.width {
	case 2:
		return uint64(c.order.Uint16(b)), nil
	case 4:
		return uint64(c.order.Uint32(b)), nil
	}
	return c.order.Uint64(b), nil
}
