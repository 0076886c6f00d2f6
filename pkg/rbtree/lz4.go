package rbtree

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
)

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// Block tags. LZ4 refuses blocks without any match, those are stored verbatim.
const (
	blockRaw byte = iota
	blockLZ4
)

// CompressUInt32Slice packs a column of link fields little-endian and compresses it as one LZ4 block.
// The first byte tags the block encoding. It returns nil for an empty column.
func CompressUInt32Slice(data []uint32) []byte {
	if len(data) == 0 {
		return nil
	}

	raw := make([]byte, len(data)*uint32ByteSize)
	for idx, value := range data {
		binary.LittleEndian.PutUint32(raw[idx*uint32ByteSize:], value)
	}

	compressed := make([]byte, 1+lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, compressed[1:], nil)
	if err != nil || written == 0 || written >= len(raw) {
		return append([]byte{blockRaw}, raw...)
	}

	compressed[0] = blockLZ4

	return compressed[:1+written]
}

// DecompressUInt32Slice reverses CompressUInt32Slice into the preallocated result.
// It reports whether the block decoded to exactly len(result) values.
func DecompressUInt32Slice(data []byte, result []uint32) bool {
	if len(data) == 0 {
		return len(result) == 0
	}

	raw := data[1:]

	switch data[0] {
	case blockRaw:
	case blockLZ4:
		raw = make([]byte, len(result)*uint32ByteSize)

		read, err := lz4.UncompressBlock(data[1:], raw)
		if err != nil {
			return false
		}

		raw = raw[:read]
	default:
		return false
	}

	if len(raw) != len(result)*uint32ByteSize {
		return false
	}

	for idx := range result {
		result[idx] = binary.LittleEndian.Uint32(raw[idx*uint32ByteSize:])
	}

	return true
}
