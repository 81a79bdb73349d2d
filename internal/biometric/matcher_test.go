package biometric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tripmate/pkg/domain-errors"
)

func TestMatch(t *testing.T) {
	t.Run("identical vectors are accepted with similarity 1", func(t *testing.T) {
		v := Embedding{0.1, 0.5, -0.3, 0.9}
		verdict, err := Match(v, v, 0.75)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, verdict.Similarity, 1e-9)
		assert.True(t, verdict.Accepted)
	})

	t.Run("orthogonal vectors are rejected with similarity 0", func(t *testing.T) {
		verdict, err := Match(Embedding{1, 0}, Embedding{0, 1}, 0.75)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, verdict.Similarity, 1e-9)
		assert.False(t, verdict.Accepted)
	})

	t.Run("similarity equal to threshold is accepted", func(t *testing.T) {
		v := Embedding{3, 4}
		verdict, err := Match(v, v, 1.0)
		require.NoError(t, err)
		assert.True(t, verdict.Accepted)
	})

	t.Run("scaling does not change similarity", func(t *testing.T) {
		verdict, err := Match(Embedding{1, 2, 3}, Embedding{2, 4, 6}, 0.99)
		require.NoError(t, err)
		assert.True(t, verdict.Accepted)
	})

	t.Run("opposite vectors are -1", func(t *testing.T) {
		verdict, err := Match(Embedding{1, 1}, Embedding{-1, -1}, 0)
		require.NoError(t, err)
		assert.InDelta(t, -1.0, verdict.Similarity, 1e-9)
		assert.False(t, verdict.Accepted)
	})
}

func TestMatch_Errors(t *testing.T) {
	t.Run("empty embedding means no face", func(t *testing.T) {
		_, err := Match(nil, Embedding{1}, 0.75)
		assert.ErrorIs(t, err, ErrNoFace)

		_, err = Match(Embedding{1}, Embedding{}, 0.75)
		assert.ErrorIs(t, err, ErrNoFace)
	})

	t.Run("length mismatch is a validation error", func(t *testing.T) {
		_, err := Match(Embedding{1, 2}, Embedding{1, 2, 3}, 0.75)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("zero vector is a validation error", func(t *testing.T) {
		_, err := Match(Embedding{0, 0}, Embedding{1, 2}, 0.75)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.NotErrorIs(t, err, ErrNoFace)
	})
}
