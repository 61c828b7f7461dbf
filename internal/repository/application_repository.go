package repository

import (
	"context"
	"errors"
	"time"

	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/models"

	"gorm.io/gorm"
)

// ApplicationRepository 白名单申请数据访问接口
type ApplicationRepository interface {
	Create(app *models.Application) error
	GetByOwner(ownerID string) (*models.Application, error)
	DeleteByOwner(ownerID string) (int64, error)
	MarkRejected(ownerID string, updatedAt time.Time) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ApplicationRepository
	WithContext(ctx context.Context) ApplicationRepository
}

// GormApplicationRepository GORM 实现
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建申请仓库
func NewApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormApplicationRepository) WithTx(tx *gorm.DB) ApplicationRepository {
	if tx == nil {
		return r
	}
	return &GormApplicationRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormApplicationRepository) WithContext(ctx context.Context) ApplicationRepository {
	if ctx == nil {
		return r
	}
	return &GormApplicationRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormApplicationRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建申请
func (r *GormApplicationRepository) Create(app *models.Application) error {
	if app == nil {
		return errors.New("invalid application")
	}
	return r.db.Create(app).Error
}

// GetByOwner 按申请人查询
func (r *GormApplicationRepository) GetByOwner(ownerID string) (*models.Application, error) {
	var app models.Application
	if err := r.db.Where("owner_id = ?", ownerID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// DeleteByOwner 删除申请
func (r *GormApplicationRepository) DeleteByOwner(ownerID string) (int64, error) {
	result := r.db.Where("owner_id = ?", ownerID).Delete(&models.Application{})
	return result.RowsAffected, result.Error
}

// MarkRejected 标记拒绝并原地累加重提次数，只作用于待审申请
func (r *GormApplicationRepository) MarkRejected(ownerID string, updatedAt time.Time) (int64, error) {
	result := r.db.Model(&models.Application{}).
		Where("owner_id = ? AND status = ?", ownerID, constants.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"reapply_count": gorm.Expr("reapply_count + 1"),
			"status":        constants.ApplicationStatusRejected,
			"updated_at":    updatedAt,
		})
	return result.RowsAffected, result.Error
}
