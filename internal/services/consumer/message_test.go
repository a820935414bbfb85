package consumer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time {
	return time.Date(2025, 10, 19, 14, 30, 22, 0, time.Local)
}

func TestParsePayloadFlatFields(t *testing.T) {
	body := []byte(`{"user_id": 7, "temperature": 24.5, "humidity": 65.2, "soil_moisture": 42}`)

	reading, err := parsePayload(body, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, uint(7), reading.UserID)
	assert.Equal(t, map[string]float64{
		"temperature":   24.5,
		"humidity":      65.2,
		"soil_moisture": 42,
	}, reading.Values)
}

func TestParsePayloadNestedMeasurements(t *testing.T) {
	body := []byte(`{"userid": "12", "measurements": {"temperature": 18, "humidity": 70}}`)

	reading, err := parsePayload(body, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, uint(12), reading.UserID)
	assert.Equal(t, map[string]float64{"temperature": 18, "humidity": 70}, reading.Values)
}

func TestParsePayloadFlatWinsOverNested(t *testing.T) {
	body := []byte(`{"user_id": 1, "temperature": 30, "measurements": {"temperature": 10}}`)

	reading, err := parsePayload(body, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 30.0, reading.Values["temperature"])
}

func TestParsePayloadMissingUserID(t *testing.T) {
	_, err := parsePayload([]byte(`{"temperature": 24.5}`), fixedNow)
	assert.True(t, errors.Is(err, ErrMalformedMessage))
}

func TestParsePayloadBrokenJSON(t *testing.T) {
	_, err := parsePayload([]byte(`{not json`), fixedNow)
	assert.True(t, errors.Is(err, ErrMalformedMessage))
}

func TestParsePayloadNonNumericMeasurementDropped(t *testing.T) {
	body := []byte(`{"user_id": 3, "temperature": 21.5, "humidity": "N/A"}`)

	reading, err := parsePayload(body, fixedNow)
	require.NoError(t, err)

	_, hasHumidity := reading.Values["humidity"]
	assert.False(t, hasHumidity)
	assert.Equal(t, 21.5, reading.Values["temperature"])
}

func TestParsePayloadNumericStringsCoerced(t *testing.T) {
	body := []byte(`{"user_id": 3, "temperature": "21.5"}`)

	reading, err := parsePayload(body, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 21.5, reading.Values["temperature"])
}

func TestParsePayloadTimestamp(t *testing.T) {
	body := []byte(`{"user_id": 1, "timestamp": "2025-01-02 03:04:05", "temperature": 1}`)

	reading, err := parsePayload(body, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local), reading.Timestamp)
}

func TestParsePayloadTimestampFallsBackToNow(t *testing.T) {
	for _, body := range []string{
		`{"user_id": 1, "temperature": 1}`,
		`{"user_id": 1, "timestamp": "not a time", "temperature": 1}`,
	} {
		reading, err := parsePayload([]byte(body), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, fixedNow().Truncate(time.Second), reading.Timestamp)
	}
}
