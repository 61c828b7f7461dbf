package repository

import (
	"context"
	"errors"
	"time"

	"github.com/serialguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 临时验证数据访问接口
type SessionRepository interface {
	Upsert(session *models.Session) error
	ListActiveBySerials(serials []string, now time.Time) ([]models.Session, error)
	DeleteBySerial(serial string) (int64, error)
	DeleteByOwner(ownerID string) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) SessionRepository
	WithContext(ctx context.Context) SessionRepository
}

// GormSessionRepository GORM 实现
type GormSessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建临时验证仓库
func NewSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	if tx == nil {
		return r
	}
	return &GormSessionRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormSessionRepository) WithContext(ctx context.Context) SessionRepository {
	if ctx == nil {
		return r
	}
	return &GormSessionRepository{db: r.db.WithContext(ctx)}
}

// Upsert 按序列号写入，已存在时同时刷新验证时间与过期时间
func (r *GormSessionRepository) Upsert(session *models.Session) error {
	if session == nil {
		return errors.New("invalid session")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "serial"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "verified_at", "expires_at"}),
	}).Create(session).Error
}

// ListActiveBySerials 查询一组序列号中仍有效的临时验证
func (r *GormSessionRepository) ListActiveBySerials(serials []string, now time.Time) ([]models.Session, error) {
	if len(serials) == 0 {
		return []models.Session{}, nil
	}
	var sessions []models.Session
	if err := r.db.Where("serial IN ? AND expires_at > ?", serials, now).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteBySerial 删除序列号的临时验证
func (r *GormSessionRepository) DeleteBySerial(serial string) (int64, error) {
	result := r.db.Where("serial = ?", serial).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// DeleteByOwner 删除某个 Discord 身份的全部临时验证
func (r *GormSessionRepository) DeleteByOwner(ownerID string) (int64, error) {
	result := r.db.Where("owner_id = ?", ownerID).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// DeleteExpired 删除 expires_at <= now 的临时验证
func (r *GormSessionRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}
