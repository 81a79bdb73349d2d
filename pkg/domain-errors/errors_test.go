package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "otp not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeExpired))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("verify: %w", New(CodeExpired, "otp expired"))
		assert.True(t, HasCode(err, CodeExpired))
	})

	t.Run("matches nested coded errors", func(t *testing.T) {
		inner := New(CodeUnavailable, "telegram down")
		outer := Wrap(inner, CodeInternal, "send otp")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnavailable))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusBadGateway, ToHTTPStatus(CodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("unknown")))
}

func TestClientMessage(t *testing.T) {
	assert.Equal(t, "phone is required", ClientMessage(New(CodeValidation, "phone is required"), "bad"))
	assert.Equal(t, "bad", ClientMessage(Wrap(errors.New("dial tcp"), CodeUnavailable, "redis down"), "bad"))
	assert.Equal(t, "bad", ClientMessage(errors.New("plain"), "bad"))
}
