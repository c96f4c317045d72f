package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vitalstream/internal/domain"
	"vitalstream/internal/repository"
)

// DeviceVerifier 设备请求验签器
// 无状态：每次验证临时持有凭证，不跨请求缓存
type DeviceVerifier struct {
	devices      repository.DevicesRepo
	replayWindow int64 // 秒；|now - ts| <= replayWindow 视为在窗口内
	logger       *zap.Logger
}

func NewDeviceVerifier(devices repository.DevicesRepo, replayWindowSeconds int64, logger *zap.Logger) *DeviceVerifier {
	return &DeviceVerifier{
		devices:      devices,
		replayWindow: replayWindowSeconds,
		logger:       logger,
	}
}

// Verify 验证一次设备上报
// 检查顺序：凭证查询 → 激活状态 → HMAC 签名 → 重放窗口
// 重放保护是纯边界检查，不做 nonce 去重；精确一次语义由持久化方按
// (device_id, timestamp) 去重
func (v *DeviceVerifier) Verify(ctx context.Context, deviceID string, timestamp int64, rawBody []byte, signature string, now time.Time) error {
	cred, err := v.devices.GetCredential(ctx, deviceID)
	if err != nil {
		if err == domain.ErrUnknownDevice {
			v.logger.Warn("Device request rejected: unknown device",
				zap.String("device_id", deviceID),
				zap.String("reason", "unknown_device"),
			)
			return domain.ErrUnknownDevice
		}
		return fmt.Errorf("failed to look up device credential: %w", err)
	}
	if !cred.Active {
		v.logger.Warn("Device request rejected: device inactive",
			zap.String("device_id", deviceID),
			zap.String("reason", "device_inactive"),
		)
		return domain.ErrDeviceInactive
	}

	expected := ComputeSignature(cred.Secret, timestamp, rawBody)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		v.logger.Warn("Device request rejected: signature mismatch",
			zap.String("device_id", deviceID),
			zap.String("reason", "invalid_signature"),
		)
		return domain.ErrInvalidSignature
	}

	skew := now.Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	// 边界取闭区间：skew == replayWindow 仍然接受
	if skew > v.replayWindow {
		v.logger.Warn("Device request rejected: timestamp out of replay window",
			zap.String("device_id", deviceID),
			zap.Int64("skew_seconds", skew),
			zap.Int64("replay_window", v.replayWindow),
			zap.String("reason", "replay_detected"),
		)
		return domain.ErrReplayDetected
	}

	// last_seen 是可选副作用，失败不影响验证结果
	go func() {
		touchCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := v.devices.TouchLastSeen(touchCtx, deviceID, now); err != nil {
			v.logger.Warn("Failed to touch device last_seen",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// ComputeSignature 计算规范消息 "{timestamp}.{body}" 的 HMAC-SHA256（base64 标准编码）
// 设备端用同一算法签名
func ComputeSignature(secret string, timestamp int64, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
