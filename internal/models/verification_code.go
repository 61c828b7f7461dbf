package models

import "time"

// VerificationCode 游戏内生成的一次性验证码
// 由游戏服务器写入，兑换后删除或过期后被清理。
type VerificationCode struct {
	Code      string    `gorm:"primaryKey;type:varchar(32)" json:"-"`          // 验证码（大写）
	Serial    string    `gorm:"type:varchar(32);index;not null" json:"serial"` // 游戏客户端序列号
	IP        string    `gorm:"type:varchar(64)" json:"ip"`                    // 生成时的玩家 IP
	Nickname  string    `gorm:"type:varchar(64)" json:"nickname"`              // 生成时的玩家昵称
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`              // 过期时间
}

// TableName 指定表名
func (VerificationCode) TableName() string {
	return "verification_codes"
}
