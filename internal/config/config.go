package config

import (
	"os"
	"strconv"
)

// Config vitalstream 服务配置（环境变量加载，带默认值）
type Config struct {
	HTTP struct {
		Addr string
	}

	DBEnabled bool
	Database  struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
		MaxConns int
		MaxIdle  int
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
		// Stream 持久化队列使用的 Redis Streams key
		Stream string
	}

	Log struct {
		Level  string
		Format string
	}

	// Device 设备认证配置
	Device struct {
		ReplayWindowSeconds int64
	}

	// Session 会话配置
	Session struct {
		Secret   string
		TTLHours int
	}

	// Classifier 异常分类器配置
	Classifier struct {
		AlertThreshold float64
		CriticalHRLow  int
		CriticalHRHigh int
		CriticalSpO2   int
		WindowSize     int
	}

	// Broadcast 广播中心配置
	Broadcast struct {
		QueueCapacity     int
		HeartbeatSeconds  int
		EvictionThreshold int
	}

	// Sink 持久化队列配置
	Sink struct {
		QueueCapacity int
	}

	// Notifier 报警 Webhook 配置（为空则禁用）
	Notifier struct {
		WebhookURL     string
		TimeoutSeconds int
	}

	// MQTT 设备接入配置（默认禁用，HTTP 是主通道）
	MQTT struct {
		Enabled  bool
		Broker   string
		ClientID string
		Username string
		Password string
		Topic    string
		QoS      byte
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to false for local dev: without a DB the service runs on memory repos.
	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalstream")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.Stream = getEnv("REDIS_STREAM", "vitals:readings")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Device.ReplayWindowSeconds = int64(parseInt(getEnv("REPLAY_WINDOW_SECONDS", "60"), 60))

	cfg.Session.Secret = getEnv("SESSION_SECRET", "dev-secret-change-me-32-bytes-min!")
	cfg.Session.TTLHours = parseInt(getEnv("SESSION_TTL_HOURS", "24"), 24)

	cfg.Classifier.AlertThreshold = parseFloat(getEnv("ALERT_THRESHOLD", "0.85"), 0.85)
	cfg.Classifier.CriticalHRLow = parseInt(getEnv("CRITICAL_HR_LOW", "40"), 40)
	cfg.Classifier.CriticalHRHigh = parseInt(getEnv("CRITICAL_HR_HIGH", "180"), 180)
	cfg.Classifier.CriticalSpO2 = parseInt(getEnv("CRITICAL_SPO2_LOW", "88"), 88)
	cfg.Classifier.WindowSize = parseInt(getEnv("CLASSIFIER_WINDOW_SIZE", "60"), 60)

	cfg.Broadcast.QueueCapacity = parseInt(getEnv("BROADCAST_QUEUE_CAPACITY", "64"), 64)
	cfg.Broadcast.HeartbeatSeconds = parseInt(getEnv("HEARTBEAT_INTERVAL_SECONDS", "5"), 5)
	cfg.Broadcast.EvictionThreshold = parseInt(getEnv("SLOW_CONSUMER_EVICTION_THRESHOLD", "8"), 8)

	cfg.Sink.QueueCapacity = parseInt(getEnv("SINK_QUEUE_CAPACITY", "256"), 256)

	cfg.Notifier.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Notifier.TimeoutSeconds = parseInt(getEnv("ALERT_WEBHOOK_TIMEOUT_SECONDS", "5"), 5)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vitalstream-ingest")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "vitals/+/readings")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	return cfg
}

// DSN Postgres 连接串
func (c *Config) DSN() string {
	return "host=" + c.Database.Host +
		" port=" + strconv.Itoa(c.Database.Port) +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Database +
		" sslmode=" + c.Database.SSLMode
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
