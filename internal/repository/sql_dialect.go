package repository

import (
	"strings"

	"gorm.io/gorm"
)

const sqliteNowLayout = "2006-01-02 15:04:05.000"

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// storeNowQueryByDialect 返回读取数据库当前时间的查询语句。
// sqlite 返回文本（UTC，毫秒精度），postgres 返回 timestamptz。
func storeNowQueryByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "SELECT NOW()"
	default:
		return "SELECT strftime('%Y-%m-%d %H:%M:%f', 'now')"
	}
}

func isPostgresDialect(dialect string) bool {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return true
	default:
		return false
	}
}
