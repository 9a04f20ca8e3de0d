package wasmout

import (
	"encoding/binary"
	"math"
)

// LEB128 varint/varuint encoding, hand-rolled exactly as the teacher does in
// internal/leb128 (no varint library is imported anywhere in the teacher
// corpus for this — see DESIGN.md).

// EncodeFloat32 encodes v as the fixed 4-byte little-endian IEEE 754
// representation f32.const's immediate uses (WebAssembly binary format §5.4.4).
func EncodeFloat32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// EncodeFloat64 encodes v as the fixed 8-byte little-endian IEEE 754
// representation f64.const's immediate uses.
func EncodeFloat64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// EncodeUint32 encodes v as an unsigned LEB128.
func EncodeUint32(v uint32) []byte { return encodeUvarint(uint64(v)) }

// EncodeUint64 encodes v as an unsigned LEB128.
func EncodeUint64(v uint64) []byte { return encodeUvarint(v) }

func encodeUvarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// EncodeInt32 encodes v as a signed LEB128.
func EncodeInt32(v int32) []byte { return encodeVarint(int64(v)) }

// EncodeInt64 encodes v as a signed LEB128.
func EncodeInt64(v int64) []byte { return encodeVarint(v) }

func encodeVarint(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// DecodeUint32 decodes an unsigned LEB128 from b, returning the value and the
// number of bytes consumed.
func DecodeUint32(b []byte) (uint32, int, error) {
	v, n, err := decodeUvarint(b, 32)
	return uint32(v), n, err
}

// DecodeUint64 decodes an unsigned LEB128 from b.
func DecodeUint64(b []byte) (uint64, int, error) {
	return decodeUvarint(b, 64)
}

func decodeUvarint(b []byte, bits int) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if int(shift) >= (bits+6)/7*7 {
			return 0, 0, errOverflow
		}
	}
	return 0, 0, errTruncated
}

// DecodeInt32 decodes a signed LEB128 from b.
func DecodeInt32(b []byte) (int32, int, error) {
	v, n, err := decodeVarint(b, 32)
	return int32(v), n, err
}

// DecodeInt64 decodes a signed LEB128 from b.
func DecodeInt64(b []byte) (int64, int, error) {
	return decodeVarint(b, 64)
}

func decodeVarint(b []byte, bits int) (int64, int, error) {
	var result int64
	var shift uint
	var c byte
	i := 0
	for ; i < len(b); i++ {
		c = b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			break
		}
		if int(shift) >= bits+7 {
			return 0, 0, errOverflow
		}
	}
	if i == len(b) && (i == 0 || b[i-1]&0x80 != 0) {
		return 0, 0, errTruncated
	}
	if shift < uint(bits) && c&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i + 1, nil
}
