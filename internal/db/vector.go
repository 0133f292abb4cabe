package db

import (
	"encoding/binary"
	"math"
)

// VectorBytes encodes an embedding as the little-endian FLOAT32 blob layout
// that FT.CREATE declares for vector fields. Stored hashes and query BLOB
// params must use the same layout.
func VectorBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
