package models

import "time"

// Application 白名单申请
// 说明：每个 Discord 身份最多保留一条记录；被拒绝后记录保留，用于累计重提次数。
type Application struct {
	OwnerID      string    `gorm:"primaryKey;type:varchar(32)" json:"owner_id"`   // 申请人 Discord ID
	Serial       string    `gorm:"type:varchar(32);index;not null" json:"serial"` // 申请的序列号
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`        // 姓名
	Age          string    `gorm:"type:varchar(16);not null" json:"age"`          // 年龄
	IngameName   string    `gorm:"type:varchar(100);not null" json:"ingame_name"` // 角色名
	IngameAge    string    `gorm:"type:varchar(16);not null" json:"ingame_age"`   // 角色年龄
	ReapplyCount int       `gorm:"not null;default:0" json:"reapply_count"`       // 已重提次数
	Status       string    `gorm:"type:varchar(16);index;not null" json:"status"` // pending / rejected
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                       // 提交时间
	UpdatedAt    time.Time `json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (Application) TableName() string {
	return "applications"
}
