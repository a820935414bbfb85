package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"agrosynchro-engine/internal/models"
)

// ErrMalformedMessage marks payloads that can never be processed: broken JSON
// or a missing user identifier.
var ErrMalformedMessage = errors.New("consumer: malformed message")

const timestampLayout = "2006-01-02 15:04:05"

// Reading is the normalized form of one queue message. Values holds only the
// measurements that arrived with a usable numeric value; a bad field is
// dropped rather than failing its siblings.
type Reading struct {
	UserID    uint
	Timestamp time.Time
	Values    map[string]float64
}

// parsePayload decodes and normalizes a sensor message body. Devices send
// either flat measurement fields or a nested "measurements" object; flat
// fields win when both are present.
func parsePayload(body []byte, now func() time.Time) (*Reading, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	nested, _ := payload["measurements"].(map[string]interface{})

	userID, ok := toUserID(firstPresent(payload, nil, "user_id", "userid"))
	if !ok {
		return nil, fmt.Errorf("%w: missing user id", ErrMalformedMessage)
	}

	values := make(map[string]float64)
	for _, measure := range models.Measures {
		if v := toFloat(firstPresent(payload, nested, measure)); v != nil {
			values[measure] = *v
		}
	}

	return &Reading{
		UserID:    userID,
		Timestamp: extractTimestamp(payload, nested, now),
		Values:    values,
	}, nil
}

// firstPresent looks keys up in the flat payload first, then the nested
// measurements object.
func firstPresent(payload, nested map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	for _, key := range keys {
		if v, ok := nested[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func extractTimestamp(payload, nested map[string]interface{}, now func() time.Time) time.Time {
	if raw, ok := firstPresent(payload, nested, "timestamp").(string); ok {
		if ts, err := time.ParseInLocation(timestampLayout, raw, time.Local); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return now().Truncate(time.Second)
}

func toUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case float64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case string:
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(parsed), true
	case json.Number:
		parsed, err := id.Int64()
		if err != nil || parsed < 0 {
			return 0, false
		}
		return uint(parsed), true
	}
	return 0, false
}

// toFloat coerces a measurement to numeric; anything else reads as missing.
func toFloat(v interface{}) *float64 {
	switch value := v.(type) {
	case float64:
		return &value
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return &parsed
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}
