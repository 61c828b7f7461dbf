package models

import "time"

// VerifiedPlayer 已绑定玩家台账
// 验证码兑换成功后按序列号写入，吊销白名单时按归属人删除。
type VerifiedPlayer struct {
	Serial     string    `gorm:"primaryKey;type:varchar(32)" json:"serial"`       // 游戏客户端序列号
	OwnerID    string    `gorm:"type:varchar(32);index;not null" json:"owner_id"` // Discord ID
	IP         string    `gorm:"type:varchar(64)" json:"ip"`                      // 玩家 IP
	Nickname   string    `gorm:"type:varchar(64)" json:"nickname"`                // 玩家昵称
	VerifiedAt time.Time `gorm:"index" json:"verified_at"`                        // 绑定时间
}

// TableName 指定表名
func (VerifiedPlayer) TableName() string {
	return "verified_players"
}
