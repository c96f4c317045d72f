package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitalstream/internal/auth"
	"vitalstream/internal/classifier"
	"vitalstream/internal/domain"
	"vitalstream/internal/repository"
	"vitalstream/internal/sink"
)

const testDeviceSecret = "dispatcher-test-secret"

// captureBroadcaster 记录发布顺序
type captureBroadcaster struct {
	mu     sync.Mutex
	events []domain.BroadcastEvent
}

func (c *captureBroadcaster) Publish(event domain.BroadcastEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureBroadcaster) Events() []domain.BroadcastEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.BroadcastEvent, len(c.events))
	copy(out, c.events)
	return out
}

// captureSink 记录持久化交接
type captureSink struct {
	mu    sync.Mutex
	items []sink.Item
}

func (c *captureSink) Submit(item sink.Item) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return true
}

func (c *captureSink) Items() []sink.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sink.Item, len(c.items))
	copy(out, c.items)
	return out
}

func setupDispatcher(t *testing.T) (*Dispatcher, *captureBroadcaster, *captureSink) {
	t.Helper()
	devices := repository.NewMemoryDevicesRepo()
	devices.UpsertDevice("dev-001", testDeviceSecret, true)
	verifier := auth.NewDeviceVerifier(devices, 60, zap.NewNop())

	broadcaster := &captureBroadcaster{}
	persistence := &captureSink{}
	d := New(verifier, broadcaster, persistence, Config{
		Thresholds:     classifier.DefaultThresholds(),
		AlertThreshold: 0.85,
		WindowSize:     60,
	}, zap.NewNop())
	return d, broadcaster, persistence
}

func signedRequest(hr, spo2 int, temp float64, ts int64) domain.IngestRequest {
	body := []byte(`{"heartRate":75,"spo2":98,"temperature":36.8}`)
	return domain.IngestRequest{
		DeviceID:  "dev-001",
		Timestamp: ts,
		HeartRate: hr,
		SpO2:      spo2,
		Temp:      temp,
		RawBody:   body,
		Signature: auth.ComputeSignature(testDeviceSecret, ts, body),
	}
}

func TestDispatcher_NormalReadingFlowsBothPaths(t *testing.T) {
	d, broadcaster, persistence := setupDispatcher(t)

	now := time.Now().Unix()
	result, err := d.Ingest(context.Background(), signedRequest(75, 98, 36.8, now))
	require.NoError(t, err)
	assert.Equal(t, domain.ClassNormal, result.Classification)

	events := broadcaster.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventVitals, events[0].Type)
	assert.Equal(t, 75, events[0].Vitals.Reading.HeartRate)

	items := persistence.Items()
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Alert)
}

func TestDispatcher_CriticalReadingEmitsAlert(t *testing.T) {
	d, broadcaster, persistence := setupDispatcher(t)

	now := time.Now().Unix()
	result, err := d.Ingest(context.Background(), signedRequest(185, 98, 36.8, now))
	require.NoError(t, err)
	assert.Equal(t, domain.ClassCritical, result.Classification)

	// vitals 事件在前，alert 事件在后
	events := broadcaster.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventVitals, events[0].Type)
	assert.Equal(t, domain.EventAlert, events[1].Type)
	assert.NotEmpty(t, events[1].Alert.Message)

	items := persistence.Items()
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Alert)
	assert.Equal(t, events[1].Alert.Level, items[0].Alert.Level)
}

func TestDispatcher_AuthFailureStopsPipeline(t *testing.T) {
	d, broadcaster, persistence := setupDispatcher(t)

	req := signedRequest(75, 98, 36.8, time.Now().Unix())
	req.Signature = "invalid"

	_, err := d.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Empty(t, broadcaster.Events())
	assert.Empty(t, persistence.Items())
}

func TestDispatcher_ValidationFailureStopsPipeline(t *testing.T) {
	d, broadcaster, persistence := setupDispatcher(t)

	cases := []struct {
		name  string
		hr    int
		spo2  int
		temp  float64
		field string
	}{
		{"heart rate above range", 400, 98, 36.8, "heart_rate"},
		{"spo2 above range", 75, 120, 36.8, "spo2"},
		{"temperature below range", 75, 98, 20.0, "temperature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Ingest(context.Background(), signedRequest(tc.hr, tc.spo2, tc.temp, time.Now().Unix()))
			var fe *domain.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
	assert.Empty(t, broadcaster.Events())
	assert.Empty(t, persistence.Items())
}

func TestDispatcher_PerDeviceWindowFeedsClassifier(t *testing.T) {
	d, broadcaster, _ := setupDispatcher(t)

	// 建立稳定基线后送入统计离群值
	base := time.Now().Unix()
	for i := 0; i < 20; i++ {
		_, err := d.Ingest(context.Background(), signedRequest(70+i%3, 98, 36.8, base))
		require.NoError(t, err)
	}
	result, err := d.Ingest(context.Background(), signedRequest(120, 98, 36.8, base))
	require.NoError(t, err)

	found := false
	for _, detail := range result.Details {
		if detail.Cause == domain.CauseDeviation {
			found = true
		}
	}
	assert.True(t, found, "expected deviation detail after baseline")
	assert.Len(t, broadcaster.Events(), 21)
}

func TestDispatcher_ConcurrentDevicesDoNotInterfere(t *testing.T) {
	d, broadcaster, _ := setupDispatcher(t)

	devices := repository.NewMemoryDevicesRepo()
	devices.UpsertDevice("dev-001", testDeviceSecret, true)
	devices.UpsertDevice("dev-002", testDeviceSecret, true)
	d.verifier = auth.NewDeviceVerifier(devices, 60, zap.NewNop())

	now := time.Now().Unix()
	var wg sync.WaitGroup
	for _, id := range []string{"dev-001", "dev-002"} {
		wg.Add(1)
		go func(deviceID string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				req := signedRequest(70, 98, 36.8, now)
				req.DeviceID = deviceID
				_, err := d.Ingest(context.Background(), req)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Len(t, broadcaster.Events(), 100)
}
