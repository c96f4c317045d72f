// Package sink 持久化通路：接收 dispatcher 的异步交接并落库/入流
// 契约是"尽力投递、永不阻塞 ingest"；所有失败只记日志和指标，
// 不回滚广播，也不回传给设备
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vitalstream/internal/domain"
	"vitalstream/internal/fhir"
	"vitalstream/internal/metrics"
	"vitalstream/internal/notifier"
	"vitalstream/internal/repository"
	"vitalstream/internal/store"
)

// Item 一次持久化交接的内容
type Item struct {
	Reading domain.Reading
	Result  domain.AnomalyResult
	Alert   *domain.AlertPayload // 非 nil 时触发 Webhook 外送
}

// Sink 持久化交接接口（dispatcher 只依赖这个）
type Sink interface {
	// Submit 非阻塞提交；队列满返回 false（丢弃计入指标）
	Submit(item Item) bool
}

// PersistenceSink 队列 + 单 worker 的持久化实现
type PersistenceSink struct {
	readings     repository.ReadingsRepo
	observations repository.ObservationsRepo
	fhirBuilder  *fhir.Builder
	redisClient  *redis.Client // 可为 nil（禁用流发布）
	stream       string
	cache        *store.LatestVitalsCache // 可为 nil（禁用快照缓存）
	alerts       notifier.AlertNotifier
	logger       *zap.Logger

	queue chan Item
}

func New(
	readings repository.ReadingsRepo,
	observations repository.ObservationsRepo,
	fhirBuilder *fhir.Builder,
	redisClient *redis.Client,
	stream string,
	cache *store.LatestVitalsCache,
	alerts notifier.AlertNotifier,
	queueCapacity int,
	logger *zap.Logger,
) *PersistenceSink {
	if queueCapacity < 1 {
		queueCapacity = 256
	}
	return &PersistenceSink{
		readings:     readings,
		observations: observations,
		fhirBuilder:  fhirBuilder,
		redisClient:  redisClient,
		stream:       stream,
		cache:        cache,
		alerts:       alerts,
		logger:       logger,
		queue:        make(chan Item, queueCapacity),
	}
}

func (s *PersistenceSink) Submit(item Item) bool {
	select {
	case s.queue <- item:
		metrics.SinkQueueDepth.Set(float64(len(s.queue)))
		return true
	default:
		metrics.SinkDrops.Inc()
		s.logger.Error("Persistence queue full, dropping reading",
			zap.String("device_id", item.Reading.DeviceID),
			zap.Int64("timestamp", item.Reading.Timestamp),
		)
		return false
	}
}

// Run worker 循环；ctx 取消后先清空积压再退出
func (s *PersistenceSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case item := <-s.queue:
					s.process(context.Background(), item)
				default:
					return
				}
			}
		case item := <-s.queue:
			metrics.SinkQueueDepth.Set(float64(len(s.queue)))
			s.process(ctx, item)
		}
	}
}

func (s *PersistenceSink) process(ctx context.Context, item Item) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 1. 读数 + 分类结果落库
	readingID, err := s.readings.InsertReading(opCtx, item.Reading, item.Result)
	if err != nil {
		metrics.SinkFailures.WithLabelValues("postgres").Inc()
		s.logger.Error("Failed to persist reading",
			zap.String("device_id", item.Reading.DeviceID),
			zap.Error(err),
		)
		// 落库失败不中断其余投递：流/缓存仍要尽力推进
		readingID = 0
	}

	// 2. 编码记录转换（FHIR Observation）
	if readingID > 0 && s.observations != nil && s.fhirBuilder != nil {
		for _, obs := range s.fhirBuilder.Observations(item.Reading) {
			b, err := json.Marshal(obs)
			if err != nil {
				metrics.SinkFailures.WithLabelValues("fhir").Inc()
				s.logger.Error("Failed to marshal observation", zap.Error(err))
				continue
			}
			if err := s.observations.InsertObservation(opCtx, readingID, b); err != nil {
				metrics.SinkFailures.WithLabelValues("fhir").Inc()
				s.logger.Error("Failed to persist observation",
					zap.Int64("reading_id", readingID),
					zap.Error(err),
				)
			}
		}
	}

	// 3. Redis Streams：下游消费者（归档/报表）的持久队列
	if s.redisClient != nil {
		if err := s.publishToStream(opCtx, item); err != nil {
			metrics.SinkFailures.WithLabelValues("stream").Inc()
			s.logger.Error("Failed to publish reading to stream",
				zap.String("stream", s.stream),
				zap.Error(err),
			)
		}
	}

	// 4. 最新快照缓存
	if s.cache != nil {
		vitals := domain.LatestVitals{
			HeartRate: item.Reading.HeartRate,
			SpO2:      item.Reading.SpO2,
			Temp:      item.Reading.Temp,
			Timestamp: item.Reading.Timestamp,
		}
		q := item.Result.QualityScore
		vitals.QualityScore = &q
		if item.Alert != nil {
			lvl := string(item.Alert.Level)
			vitals.AlertLevel = &lvl
		}
		if err := s.cache.Set(opCtx, vitals); err != nil {
			metrics.SinkFailures.WithLabelValues("cache").Inc()
			s.logger.Error("Failed to cache latest vitals", zap.Error(err))
		}
	}

	// 5. 报警外送
	if item.Alert != nil && s.alerts != nil {
		if err := s.alerts.Notify(opCtx, *item.Alert); err != nil {
			metrics.SinkFailures.WithLabelValues("webhook").Inc()
			s.logger.Error("Failed to deliver alert webhook",
				zap.String("level", string(item.Alert.Level)),
				zap.Error(err),
			)
		}
	}
}

// publishToStream XADD 到配置的 stream；data 字段是完整 JSON，
// 其余字段冗余展开便于 XRANGE 侧的轻量过滤
func (s *PersistenceSink) publishToStream(ctx context.Context, item Item) error {
	payload, err := json.Marshal(map[string]any{
		"reading": item.Reading,
		"result":  item.Result,
	})
	if err != nil {
		return err
	}

	return s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"device_id":      item.Reading.DeviceID,
			"timestamp":      item.Reading.Timestamp,
			"classification": string(item.Result.Classification),
			"alert_level":    string(item.Result.AlertLevel),
			"data":           string(payload),
		},
	}).Err()
}
