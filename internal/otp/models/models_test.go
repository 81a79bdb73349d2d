package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "tripmate/pkg/domain-errors"
)

func TestRecord_IsExpired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Record{Phone: "9876543210", Code: "123456", IssuedAt: issued}
	ttl := 300 * time.Second

	assert.False(t, r.IsExpired(issued, ttl))
	assert.False(t, r.IsExpired(issued.Add(ttl), ttl), "exactly ttl old is still valid")
	assert.True(t, r.IsExpired(issued.Add(ttl+time.Nanosecond), ttl))
}

func TestValidatePhone(t *testing.T) {
	for _, ok := range []string{"9876543210", "+919876543210", "1234567"} {
		assert.NoError(t, ValidatePhone(ok), ok)
	}
	for _, bad := range []string{"", "+", "12345", "98765x3210", "1234567890123456", "98 76543210"} {
		err := ValidatePhone(bad)
		assert.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}
