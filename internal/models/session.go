package models

import "time"

// Session 临时验证记录
// expires_at = verified_at + TTL，重复验证时两个时间同时刷新。
type Session struct {
	Serial     string    `gorm:"primaryKey;type:varchar(32)" json:"serial"`       // 游戏客户端序列号
	OwnerID    string    `gorm:"type:varchar(32);index;not null" json:"owner_id"` // 验证人 Discord ID
	VerifiedAt time.Time `gorm:"not null" json:"verified_at"`                     // 验证时间
	ExpiresAt  time.Time `gorm:"index;not null" json:"expires_at"`                // 过期时间
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// ActiveAt 判断记录在指定时间是否仍有效
func (s Session) ActiveAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
