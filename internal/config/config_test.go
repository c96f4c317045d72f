package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "vitals:readings", cfg.Redis.Stream)
	assert.Equal(t, int64(60), cfg.Device.ReplayWindowSeconds)
	assert.Equal(t, 24, cfg.Session.TTLHours)
	assert.Equal(t, 0.85, cfg.Classifier.AlertThreshold)
	assert.Equal(t, 40, cfg.Classifier.CriticalHRLow)
	assert.Equal(t, 180, cfg.Classifier.CriticalHRHigh)
	assert.Equal(t, 88, cfg.Classifier.CriticalSpO2)
	assert.Equal(t, 60, cfg.Classifier.WindowSize)
	assert.Equal(t, 64, cfg.Broadcast.QueueCapacity)
	assert.Equal(t, 5, cfg.Broadcast.HeartbeatSeconds)
	assert.Equal(t, 8, cfg.Broadcast.EvictionThreshold)
	assert.Equal(t, 256, cfg.Sink.QueueCapacity)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REPLAY_WINDOW_SECONDS", "120")
	t.Setenv("ALERT_THRESHOLD", "0.7")
	t.Setenv("BROADCAST_QUEUE_CAPACITY", "128")
	t.Setenv("MQTT_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, int64(120), cfg.Device.ReplayWindowSeconds)
	assert.Equal(t, 0.7, cfg.Classifier.AlertThreshold)
	assert.Equal(t, 128, cfg.Broadcast.QueueCapacity)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoad_MalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("REPLAY_WINDOW_SECONDS", "not-a-number")
	t.Setenv("ALERT_THRESHOLD", "abc")

	cfg := Load()

	assert.Equal(t, int64(60), cfg.Device.ReplayWindowSeconds)
	assert.Equal(t, 0.85, cfg.Classifier.AlertThreshold)
}

func TestDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "vitals")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "vitalsdb")

	cfg := Load()

	assert.Equal(t,
		"host=db.internal port=5433 user=vitals password=secret dbname=vitalsdb sslmode=disable",
		cfg.DSN(),
	)
}
