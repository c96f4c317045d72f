// Package dispatcher 摄取编排：verify → validate → classify → 双路分发
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"vitalstream/internal/auth"
	"vitalstream/internal/classifier"
	"vitalstream/internal/domain"
	"vitalstream/internal/metrics"
	"vitalstream/internal/sink"
)

// Broadcaster 实时广播通路（hub.Hub 实现）
// Publish 非阻塞、永不报错：背压由 hub 内部的 drop-oldest 策略消化
type Broadcaster interface {
	Publish(event domain.BroadcastEvent)
}

// Config dispatcher 配置
type Config struct {
	Thresholds     classifier.Thresholds
	AlertThreshold float64
	WindowSize     int
}

// deviceState 单设备状态：近期窗口 + 串行化锁
// 同一设备的两条读数不允许并发分类（窗口非并发安全）；
// 不同设备完全并行
type deviceState struct {
	mu     sync.Mutex
	window *classifier.VitalsWindow
}

// Dispatcher 摄取编排器
// 每个请求的阶段转移严格串行：Received → Authenticated → Validated →
// Classified → Dispatched；任何阶段失败即终止并返回对应错误
type Dispatcher struct {
	verifier *auth.DeviceVerifier
	hub      Broadcaster
	sink     sink.Sink
	cfg      Config
	logger   *zap.Logger

	now func() time.Time

	mu      sync.Mutex
	devices map[string]*deviceState
}

func New(verifier *auth.DeviceVerifier, broadcaster Broadcaster, persistence sink.Sink, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = 0.85
	}
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 60
	}
	return &Dispatcher{
		verifier: verifier,
		hub:      broadcaster,
		sink:     persistence,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		devices:  make(map[string]*deviceState),
	}
}

// Ingest 处理一次设备上报
// 认证/校验失败同步返回给设备（4xx 语义）；广播背压和持久化失败
// 对设备不可见——设备的契约只到认证/校验边界为止
func (d *Dispatcher) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.AnomalyResult, error) {
	// Received → Authenticated
	if err := d.verifier.Verify(ctx, req.DeviceID, req.Timestamp, req.RawBody, req.Signature, d.now()); err != nil {
		metrics.ReadingsReceived.WithLabelValues("rejected").Inc()
		metrics.AuthFailures.WithLabelValues(domain.ErrorCode(err)).Inc()
		return nil, err
	}

	// Authenticated → Validated
	reading, err := domain.NewReading(req.DeviceID, req.HeartRate, req.SpO2, req.Temp, req.Timestamp)
	if err != nil {
		metrics.ReadingsReceived.WithLabelValues("rejected").Inc()
		d.logger.Warn("Reading rejected: field out of range",
			zap.String("device_id", req.DeviceID),
			zap.String("reason", domain.ErrorCode(err)),
		)
		return nil, err
	}

	state := d.deviceState(reading.DeviceID)

	// 同设备串行；classify 纯计算 + Publish/Submit 均非阻塞，
	// 锁内没有外部 I/O
	state.mu.Lock()
	defer state.mu.Unlock()

	// Validated → Classified
	start := time.Now()
	result := classifier.Classify(reading, state.window, d.cfg.Thresholds)
	metrics.ClassifyLatency.Observe(time.Since(start).Seconds())
	state.window.Add(reading)

	if result.Anomalous() {
		metrics.AnomaliesDetected.Inc()
	}

	// Classified → Dispatched：两路交接互不阻塞
	d.hub.Publish(domain.NewVitalsEvent(reading, result))

	var alert *domain.AlertPayload
	if classifier.ShouldAlert(result, d.cfg.AlertThreshold) {
		alert = &domain.AlertPayload{
			Level:   result.AlertLevel,
			Message: classifier.AlertMessage(result.AlertLevel),
			Details: result.Details,
		}
		d.hub.Publish(domain.NewAlertEvent(alert.Level, alert.Message, alert.Details, reading.Timestamp))
		metrics.AlertsEmitted.WithLabelValues(string(alert.Level)).Inc()
	}

	d.sink.Submit(sink.Item{Reading: reading, Result: result, Alert: alert})

	metrics.ReadingsReceived.WithLabelValues("accepted").Inc()
	return &result, nil
}

func (d *Dispatcher) deviceState(deviceID string) *deviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.devices[deviceID]
	if !ok {
		state = &deviceState{window: classifier.NewVitalsWindow(d.cfg.WindowSize)}
		d.devices[deviceID] = state
	}
	return state
}
