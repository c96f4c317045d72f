package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vitalstream/internal/auth"
	"vitalstream/internal/domain"
	"vitalstream/internal/metrics"
)

// SessionValidator 订阅前的会话校验（由 auth.SessionAuthority 实现）
type SessionValidator interface {
	Validate(token string) (*auth.SessionClaims, error)
}

// Subscriber 一个在线订阅者
// events 队列有界；hub 永不因慢订阅者阻塞发布
type Subscriber struct {
	ID        string
	SubjectID string
	Role      string

	events chan domain.BroadcastEvent

	// 以下字段由 Hub.mu 保护
	dropStreak int
	removed    bool
	evicted    bool
}

// Events 订阅者的事件队列；通道关闭即终止（主动退订或被动淘汰）
func (s *Subscriber) Events() <-chan domain.BroadcastEvent {
	return s.events
}

// Config Hub 配置
type Config struct {
	QueueCapacity     int           // 每订阅者队列容量
	HeartbeatInterval time.Duration // 心跳间隔
	EvictionThreshold int           // 连续丢弃多少条后淘汰慢订阅者
}

// Hub 广播中心
// 订阅者注册表是唯一被多任务并发修改的结构，由互斥锁保护；
// 锁内从不做外部 I/O
type Hub struct {
	cfg      Config
	sessions SessionValidator
	logger   *zap.Logger

	mu     sync.Mutex
	subs   map[string]*Subscriber
	closed bool
}

func New(cfg Config, sessions SessionValidator, logger *zap.Logger) *Hub {
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = 64
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.EvictionThreshold < 1 {
		cfg.EvictionThreshold = 8
	}
	return &Hub{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
		subs:     make(map[string]*Subscriber),
	}
}

// Subscribe 校验会话并注册订阅者
// 仅当 hub 已关闭才返回 ErrBroadcastUnavailable；令牌问题返回对应 TokenError
func (h *Hub) Subscribe(token string) (*Subscriber, error) {
	claims, err := h.sessions.Validate(token)
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:        uuid.NewString(),
		SubjectID: claims.Subject,
		Role:      claims.Role,
		events:    make(chan domain.BroadcastEvent, h.cfg.QueueCapacity),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, domain.ErrBroadcastUnavailable
	}
	h.subs[sub.ID] = sub
	metrics.ActiveSubscribers.Set(float64(len(h.subs)))

	h.logger.Info("Subscriber joined",
		zap.String("subscriber_id", sub.ID),
		zap.String("subject_id", sub.SubjectID),
	)
	return sub, nil
}

// Unsubscribe 立即移除订阅者并释放其队列（幂等；与并发 Publish 原子）
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, false)
}

// Publish 向所有订阅者非阻塞投递
// 队列满时对该订阅者丢弃最旧事件（drop-oldest）；连续丢弃超过阈值则淘汰。
// 发布方从不阻塞、从不报错
func (h *Hub) Publish(event domain.BroadcastEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.events <- event:
			sub.dropStreak = 0
			continue
		default:
		}

		// 队列已满：丢最旧，再投递
		select {
		case <-sub.events:
		default:
		}
		metrics.BroadcastDrops.Inc()
		sub.dropStreak++

		select {
		case sub.events <- event:
		default:
		}

		if sub.dropStreak >= h.cfg.EvictionThreshold {
			h.logger.Warn("Evicting slow subscriber",
				zap.String("subscriber_id", sub.ID),
				zap.String("subject_id", sub.SubjectID),
				zap.Int("drop_streak", sub.dropStreak),
			)
			h.removeLocked(sub, true)
		}
	}
}

// removeLocked 调用方必须持有 h.mu
func (h *Hub) removeLocked(sub *Subscriber, evicted bool) {
	if sub == nil || sub.removed {
		return
	}
	sub.removed = true
	sub.evicted = evicted
	delete(h.subs, sub.ID)
	close(sub.events)
	metrics.ActiveSubscribers.Set(float64(len(h.subs)))
	if evicted {
		metrics.SubscriberEvictions.Inc()
	} else {
		h.logger.Info("Subscriber left", zap.String("subscriber_id", sub.ID))
	}
}

// Evicted 订阅者是否因慢消费被淘汰（队列关闭后可查询）
func (h *Hub) Evicted(sub *Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sub.evicted
}

// SubscriberCount 在线订阅者数
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run 心跳循环：固定间隔向所有订阅者发送 heartbeat 事件，
// 让客户端区分"空闲"与"断连"；ctx 取消时关闭 hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case now := <-ticker.C:
			h.Publish(domain.NewHeartbeatEvent(now.Unix()))
		}
	}
}

// Close 关闭 hub：拒绝新订阅并断开所有在线订阅者
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subs {
		h.removeLocked(sub, false)
	}
}
