package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalEvent_ReadsMarshalledPayload(t *testing.T) {
	in := Event{
		ID:         "evt-9",
		Timestamp:  time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC),
		Action:     string(EventCheckinSucceeded),
		PhoneHash:  "h",
		TripNumber: 3,
	}
	body, err := MarshalEvent(in)
	require.NoError(t, err)

	out, err := UnmarshalEvent(body)
	require.NoError(t, err)
	assert.Equal(t, CategoryCompliance, out.Category, "category derived from action")
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, 3, out.TripNumber)

	_, err = UnmarshalEvent([]byte(`{"timestamp":"yesterday"}`))
	assert.Error(t, err)
}
