package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Clock 时间来源
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// ClockFunc 函数式时间来源，测试中用于固定时间
type ClockFunc func() time.Time

// Now 返回当前时间
func (f ClockFunc) Now(_ context.Context) (time.Time, error) {
	return f().UTC(), nil
}

// StoreClock 以数据库当前时间为准的时间来源
// 所有过期判断都使用数据库时间，避免进程间时钟偏差。
type StoreClock struct {
	db *gorm.DB
}

// NewStoreClock 创建数据库时间来源
func NewStoreClock(db *gorm.DB) *StoreClock {
	return &StoreClock{db: db}
}

// Now 读取数据库当前时间（UTC）
func (c *StoreClock) Now(ctx context.Context) (time.Time, error) {
	if c == nil || c.db == nil {
		return time.Time{}, fmt.Errorf("store clock db is nil")
	}
	dialect := dbDialectName(c.db)
	row := c.db.WithContext(ctx).Raw(storeNowQueryByDialect(dialect)).Row()
	if row == nil {
		return time.Time{}, fmt.Errorf("store clock query returned no row")
	}
	if isPostgresDialect(dialect) {
		var now time.Time
		if err := row.Scan(&now); err != nil {
			return time.Time{}, fmt.Errorf("read store time failed: %w", err)
		}
		return now.UTC(), nil
	}
	var text string
	if err := row.Scan(&text); err != nil {
		return time.Time{}, fmt.Errorf("read store time failed: %w", err)
	}
	now, err := time.ParseInLocation(sqliteNowLayout, text, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse store time failed: %w", err)
	}
	return now, nil
}
