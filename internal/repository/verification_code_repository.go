package repository

import (
	"context"
	"errors"
	"time"

	"github.com/serialguard/internal/models"

	"gorm.io/gorm"
)

// VerificationCodeRepository 一次性验证码数据访问接口
type VerificationCodeRepository interface {
	Create(code *models.VerificationCode) error
	GetValid(code string, now time.Time) (*models.VerificationCode, error)
	DeleteByCode(code string) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) VerificationCodeRepository
	WithContext(ctx context.Context) VerificationCodeRepository
}

// GormVerificationCodeRepository GORM 实现
type GormVerificationCodeRepository struct {
	db *gorm.DB
}

// NewVerificationCodeRepository 创建验证码仓库
func NewVerificationCodeRepository(db *gorm.DB) *GormVerificationCodeRepository {
	return &GormVerificationCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVerificationCodeRepository) WithTx(tx *gorm.DB) VerificationCodeRepository {
	if tx == nil {
		return r
	}
	return &GormVerificationCodeRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormVerificationCodeRepository) WithContext(ctx context.Context) VerificationCodeRepository {
	if ctx == nil {
		return r
	}
	return &GormVerificationCodeRepository{db: r.db.WithContext(ctx)}
}

// Create 写入验证码（正常由游戏服务器写入）
func (r *GormVerificationCodeRepository) Create(code *models.VerificationCode) error {
	if code == nil {
		return errors.New("invalid verification code")
	}
	return r.db.Create(code).Error
}

// GetValid 查询未过期的验证码
func (r *GormVerificationCodeRepository) GetValid(code string, now time.Time) (*models.VerificationCode, error) {
	var record models.VerificationCode
	if err := r.db.Where("code = ? AND expires_at > ?", code, now).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteByCode 删除验证码
func (r *GormVerificationCodeRepository) DeleteByCode(code string) (int64, error) {
	result := r.db.Where("code = ?", code).Delete(&models.VerificationCode{})
	return result.RowsAffected, result.Error
}

// DeleteExpired 删除 expires_at <= now 的验证码
func (r *GormVerificationCodeRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.VerificationCode{})
	return result.RowsAffected, result.Error
}
