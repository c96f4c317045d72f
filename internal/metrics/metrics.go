// Package metrics Prometheus 指标定义
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsReceived 收到的读数总量（按结果区分）
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalstream_readings_received_total",
			Help: "Total number of device readings received",
		},
		[]string{"outcome"}, // accepted / rejected
	)

	// AuthFailures 设备认证失败（按错误码区分）
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalstream_auth_failures_total",
			Help: "Total number of device authentication failures",
		},
		[]string{"code"},
	)

	// AnomaliesDetected 检出异常的读数
	AnomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalstream_anomalies_detected_total",
			Help: "Total number of readings with detected anomalies",
		},
	)

	// AlertsEmitted 生成的 Alert 事件（按等级区分）
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalstream_alerts_emitted_total",
			Help: "Total number of alert events emitted",
		},
		[]string{"level"},
	)

	// ActiveSubscribers 在线订阅者数
	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitalstream_active_subscribers",
			Help: "Number of currently connected live subscribers",
		},
	)

	// BroadcastDrops 慢订阅者丢弃的事件数
	BroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalstream_broadcast_drops_total",
			Help: "Total number of events dropped for slow subscribers",
		},
	)

	// SubscriberEvictions 被淘汰的慢订阅者数
	SubscriberEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalstream_subscriber_evictions_total",
			Help: "Total number of subscribers evicted as slow consumers",
		},
	)

	// SinkQueueDepth 持久化队列深度
	SinkQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitalstream_sink_queue_depth",
			Help: "Current depth of the persistence sink queue",
		},
	)

	// SinkDrops 持久化队列满导致的丢弃
	SinkDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalstream_sink_drops_total",
			Help: "Total number of readings dropped because the sink queue was full",
		},
	)

	// SinkFailures 持久化失败（按目标区分）
	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalstream_sink_failures_total",
			Help: "Total number of persistence sink failures",
		},
		[]string{"target"}, // postgres / stream / cache / fhir / webhook
	)

	// ClassifyLatency 分类耗时
	ClassifyLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitalstream_classify_latency_seconds",
			Help:    "Anomaly classification latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)
)
