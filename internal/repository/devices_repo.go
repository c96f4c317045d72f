package repository

import (
	"context"
	"time"

	"vitalstream/internal/domain"
)

// DevicesRepo 设备凭证查询接口（外部凭证库的查询面）
// verifier 每次验证都走一次 GetCredential，不跨请求缓存
type DevicesRepo interface {
	// GetCredential 按设备 ID 查询凭证；不存在返回 domain.ErrUnknownDevice
	GetCredential(ctx context.Context, deviceID string) (*domain.DeviceCredential, error)

	// TouchLastSeen 更新 last_seen（验证成功后的可选副作用，失败只记日志）
	TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error
}

// UsersRepo 用户登录查询接口
// 账号/口令以 SHA-256 哈希比对，与前端加密传输约定一致
type UsersRepo interface {
	// GetUserForLogin 凭证匹配返回用户；不匹配返回 sql.ErrNoRows 或等价错误
	GetUserForLogin(ctx context.Context, accountHash, passwordHash []byte) (*domain.User, error)
}
