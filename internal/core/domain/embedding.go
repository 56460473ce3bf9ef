package domain

import "math"

const (
	MinEmbeddingDimension = 128
	MaxEmbeddingDimension = 4096
)

// VectorEmbedding is an immutable fixed-dimension vector. The constructor
// copies its input, so a caller mutating the source slice cannot reach the
// stored values.
type VectorEmbedding struct {
	values []float32
}

func NewVectorEmbedding(values []float32) (VectorEmbedding, error) {
	if len(values) < MinEmbeddingDimension || len(values) > MaxEmbeddingDimension {
		return VectorEmbedding{}, validationErr(
			"create embedding",
			"dimension %d outside [%d, %d]",
			len(values), MinEmbeddingDimension, MaxEmbeddingDimension,
		)
	}
	copied := make([]float32, len(values))
	copy(copied, values)
	return VectorEmbedding{values: copied}, nil
}

func (e VectorEmbedding) Dimension() int {
	return len(e.values)
}

// IsZero reports whether the embedding was never constructed.
func (e VectorEmbedding) IsZero() bool {
	return len(e.values) == 0
}

// Values returns a copy of the underlying vector.
func (e VectorEmbedding) Values() []float32 {
	out := make([]float32, len(e.values))
	copy(out, e.values)
	return out
}

func (e VectorEmbedding) Equal(other VectorEmbedding) bool {
	if len(e.values) != len(other.values) {
		return false
	}
	for i, v := range e.values {
		if v != other.values[i] {
			return false
		}
	}
	return true
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|) with float64 accumulation.
// A zero-norm operand yields 0.0 rather than dividing by zero.
func (e VectorEmbedding) CosineSimilarity(other VectorEmbedding) (float64, error) {
	if len(e.values) != len(other.values) {
		return 0, validationErr(
			"cosine similarity",
			"dimension mismatch: %d vs %d",
			len(e.values), len(other.values),
		)
	}

	var dot, normA, normB float64
	for i, v := range e.values {
		a := float64(v)
		b := float64(other.values[i])
		dot += a * b
		normA += a * a
		normB += b * b
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
