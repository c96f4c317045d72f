// Package consumer MQTT 设备接入通道（可选，HTTP 是主通道）
// 消息进入与 HTTP 完全相同的认证/校验/分类管线：签名仍覆盖
// "{timestamp}.{payload 原始字节}"
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"vitalstream/internal/dispatcher"
	"vitalstream/internal/domain"
)

// Config MQTT 消费者配置
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// envelope MQTT 消息信封；payload 是设备签名覆盖的原始 JSON
type envelope struct {
	DeviceID  string          `json:"device_id"`
	Timestamp int64           `json:"timestamp"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

type payloadBody struct {
	HeartRate int     `json:"heartRate"`
	SpO2      int     `json:"spo2"`
	Temp      float64 `json:"temperature"`
}

// MQTTConsumer 订阅读数主题并喂给 dispatcher
type MQTTConsumer struct {
	client     mqtt.Client
	cfg        Config
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

func NewMQTTConsumer(cfg Config, d *dispatcher.Dispatcher, logger *zap.Logger) (*MQTTConsumer, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTConsumer{
		client:     client,
		cfg:        cfg,
		dispatcher: d,
		logger:     logger,
	}, nil
}

// Start 订阅主题；处理出错只记日志，不中断订阅
func (c *MQTTConsumer) Start(ctx context.Context) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT reading rejected",
				zap.String("topic", msg.Topic()),
				zap.String("reason", domain.ErrorCode(err)),
			)
		}
	}

	if token := c.client.Subscribe(c.cfg.Topic, c.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.cfg.Topic, token.Error())
	}

	c.logger.Info("MQTT consumer subscribed",
		zap.String("broker", c.cfg.Broker),
		zap.String("topic", c.cfg.Topic),
	)
	return nil
}

func (c *MQTTConsumer) handle(ctx context.Context, topic string, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed envelope on %s: %w", topic, err)
	}

	var body payloadBody
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		return fmt.Errorf("malformed payload on %s: %w", topic, err)
	}

	_, err := c.dispatcher.Ingest(ctx, domain.IngestRequest{
		DeviceID:  env.DeviceID,
		Timestamp: env.Timestamp,
		HeartRate: body.HeartRate,
		SpO2:      body.SpO2,
		Temp:      body.Temp,
		RawBody:   env.Payload,
		Signature: env.Signature,
	})
	return err
}

// Stop 退订并断开
func (c *MQTTConsumer) Stop() {
	if token := c.client.Unsubscribe(c.cfg.Topic); token.Wait() && token.Error() != nil {
		c.logger.Warn("MQTT unsubscribe failed", zap.Error(token.Error()))
	}
	c.client.Disconnect(250)
}
