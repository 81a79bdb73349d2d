// Package biometric compares face embeddings.
package biometric

import (
	"errors"
	"math"

	dErrors "tripmate/pkg/domain-errors"
)

// ErrNoFace is returned when an embedding is empty, meaning the extractor
// found no face in the image. It is distinct from a low similarity.
var ErrNoFace = errors.New("no face detected")

// Embedding is a fixed-length face feature vector.
type Embedding []float32

// Verdict is the outcome of comparing two embeddings.
type Verdict struct {
	Similarity float64
	Accepted   bool
}

// Match compares a and b by cosine similarity and accepts iff the similarity
// is at least threshold.
func Match(a, b Embedding, threshold float64) (Verdict, error) {
	sim, err := Cosine(a, b)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Similarity: sim, Accepted: sim >= threshold}, nil
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
func Cosine(a, b Embedding) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrNoFace
	}
	if len(a) != len(b) {
		return 0, dErrors.New(dErrors.CodeValidation, "embedding length mismatch")
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "embedding has zero norm")
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// clamp rounding drift
	return math.Max(-1, math.Min(1, sim)), nil
}
