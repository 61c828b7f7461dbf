package models

import "time"

// WhitelistEntry 白名单记录
// 说明：一个序列号只归属一个 Discord 身份，重复授予时覆盖归属人。
type WhitelistEntry struct {
	Serial    string    `gorm:"primaryKey;type:varchar(32)" json:"serial"`       // 游戏客户端序列号（大写）
	OwnerID   string    `gorm:"type:varchar(32);index;not null" json:"owner_id"` // 归属人 Discord ID
	GrantedBy string    `gorm:"type:varchar(32);not null" json:"granted_by"`     // 授予人 Discord ID
	IP        string    `gorm:"type:varchar(64)" json:"ip"`                      // 最近一次兑换验证码时的 IP
	Nickname  string    `gorm:"type:varchar(64)" json:"nickname"`                // 最近一次兑换验证码时的昵称
	GrantedAt time.Time `gorm:"index" json:"granted_at"`                         // 授予时间
}

// TableName 指定表名
func (WhitelistEntry) TableName() string {
	return "whitelist_entries"
}
