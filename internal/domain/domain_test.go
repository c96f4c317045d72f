package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReading_Valid(t *testing.T) {
	r, err := NewReading("dev-001", 75, 98, 36.8, 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "dev-001", r.DeviceID)
	assert.Equal(t, int64(1700000000), r.Time().Unix())
}

func TestNewReading_FieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		hr    int
		spo2  int
		temp  float64
		field string
	}{
		{"heart rate negative", -1, 98, 36.8, "heart_rate"},
		{"heart rate above max", 301, 98, 36.8, "heart_rate"},
		{"spo2 above max", 75, 101, 36.8, "spo2"},
		{"temperature below min", 75, 98, 24.9, "temperature"},
		{"temperature above max", 75, 98, 45.1, "temperature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReading("dev-001", tc.hr, tc.spo2, tc.temp, 1700000000)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestNewReading_BoundaryValuesAccepted(t *testing.T) {
	_, err := NewReading("dev-001", 0, 0, 25.0, 1700000000)
	assert.NoError(t, err)
	_, err = NewReading("dev-001", 300, 100, 45.0, 1700000000)
	assert.NoError(t, err)
}

func TestErrorCode_StableStrings(t *testing.T) {
	cases := map[error]string{
		ErrUnknownDevice:        "unknown_device",
		ErrDeviceInactive:       "device_inactive",
		ErrInvalidSignature:     "invalid_signature",
		ErrReplayDetected:       "replay_detected",
		ErrTokenMalformed:       "token_malformed",
		ErrTokenExpired:         "token_expired",
		ErrTokenRevoked:         "token_revoked",
		ErrBroadcastUnavailable: "broadcast_unavailable",
	}
	for err, want := range cases {
		assert.Equal(t, want, ErrorCode(err))
		// 包装后仍可识别
		assert.Equal(t, want, ErrorCode(fmt.Errorf("wrapped: %w", err)))
	}

	assert.Equal(t, "field_out_of_range:spo2", ErrorCode(&FieldError{Field: "spo2"}))
	assert.Equal(t, "internal_error", ErrorCode(errors.New("something else")))
}

func TestBroadcastEvent_Encode(t *testing.T) {
	reading, err := NewReading("dev-001", 75, 98, 36.8, 1700000000)
	require.NoError(t, err)

	event := NewVitalsEvent(reading, AnomalyResult{
		QualityScore:   1.0,
		Classification: ClassNormal,
		AlertLevel:     AlertNone,
	})
	b, err := event.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "vitals", decoded["type"])
	assert.NotContains(t, decoded, "alert")

	heartbeat, err := NewHeartbeatEvent(1700000000).Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(heartbeat), "data")
}

func TestNewAlertEvent(t *testing.T) {
	event := NewAlertEvent(AlertHigh, "review recommended", nil, 1700000000)
	assert.Equal(t, EventAlert, event.Type)
	require.NotNil(t, event.Alert)
	assert.Equal(t, AlertHigh, event.Alert.Level)
	assert.Nil(t, event.Vitals)
}
