// Package vectorstore holds helpers shared by the vector store backends.
package vectorstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned by Search when the query vector and the
// stored vectors have different lengths.
var ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")

// CheckDimension returns ErrDimensionMismatch unless got equals want.
func CheckDimension(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, want, got)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length and zero-magnitude inputs score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ToFloat32 narrows a vector for backends that store float32.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// ToFloat64 widens a stored float32 vector.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// EncodeEmbedding encodes a vector as little-endian IEEE 754 float32 values
// without a length prefix.
func EncodeEmbedding(vec []float64) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	}
	return b
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float64, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vectorstore: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float64, len(b)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return vec, nil
}
