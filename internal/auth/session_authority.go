package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vitalstream/internal/domain"
)

// SessionClaims 会话令牌声明
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionAuthority 会话签发/校验/吊销
// 吊销集合是进程内的并发安全结构：Revoke 返回后，同进程的所有后续
// Validate 立即可见；跨进程可见性由外部存储承担（此处不做）
type SessionAuthority struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger

	// now 可替换的时钟（测试用）
	now func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time // token_id -> 原始 expires_at，用于 Prune
}

func NewSessionAuthority(secret string, ttl time.Duration, logger *zap.Logger) *SessionAuthority {
	return &SessionAuthority{
		secret:  []byte(secret),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// Issue 签发新会话：每次登录一个全新的 token_id
func (a *SessionAuthority) Issue(subjectID, role string) (*domain.Session, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)
	tokenID := uuid.NewString()

	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		TokenID:   tokenID,
		SubjectID: subjectID,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		Token:     signed,
	}, nil
}

// Validate 校验 bearer token
// 检查顺序固定：格式/签名（廉价的语法检查优先）→ 过期 → 吊销
func (a *SessionAuthority) Validate(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenMalformed
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}

	a.mu.RLock()
	_, isRevoked := a.revoked[claims.ID]
	a.mu.RUnlock()
	if isRevoked {
		return nil, domain.ErrTokenRevoked
	}

	return claims, nil
}

// Revoke 吊销令牌（幂等）
// 携带原始 expires_at：条目确定过期后 Prune 可安全删除，因为过期本身
// 就足以让 Validate 拒绝
func (a *SessionAuthority) Revoke(tokenID string, expiresAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.revoked[tokenID]; ok {
		return
	}
	a.revoked[tokenID] = expiresAt
	a.logger.Info("Session revoked", zap.String("token_id", tokenID))
}

// Prune 清理已过期的吊销条目，返回删除数量
func (a *SessionAuthority) Prune() int {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for id, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, id)
			n++
		}
	}
	return n
}

// RevokedCount 吊销集合大小（测试/指标用）
func (a *SessionAuthority) RevokedCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.revoked)
}
