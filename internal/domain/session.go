package domain

import "time"

// Session 会话（一次登录对应一个会话）
// 吊销后进入吊销集合（集合是"令牌是否仍可用"的权威来源），或过期后失效
type Session struct {
	TokenID   string    // jti，全局唯一
	SubjectID string    // 用户 ID
	Role      string    // 角色（viewer / admin ...）
	IssuedAt  time.Time
	ExpiresAt time.Time
	Token     string    // 签名后的 bearer token
}

// User 登录用户（外部用户库所有，这里只保留会话签发需要的投影）
type User struct {
	UserID   string
	Account  string
	Role     string
	Active   bool
}
