package repository

import (
	"context"
	"errors"

	"github.com/serialguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VerifiedPlayerRepository 已绑定玩家数据访问接口
type VerifiedPlayerRepository interface {
	Upsert(player *models.VerifiedPlayer) error
	GetBySerial(serial string) (*models.VerifiedPlayer, error)
	DeleteByOwner(ownerID string) (int64, error)
	WithTx(tx *gorm.DB) VerifiedPlayerRepository
	WithContext(ctx context.Context) VerifiedPlayerRepository
}

// GormVerifiedPlayerRepository GORM 实现
type GormVerifiedPlayerRepository struct {
	db *gorm.DB
}

// NewVerifiedPlayerRepository 创建已绑定玩家仓库
func NewVerifiedPlayerRepository(db *gorm.DB) *GormVerifiedPlayerRepository {
	return &GormVerifiedPlayerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVerifiedPlayerRepository) WithTx(tx *gorm.DB) VerifiedPlayerRepository {
	if tx == nil {
		return r
	}
	return &GormVerifiedPlayerRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormVerifiedPlayerRepository) WithContext(ctx context.Context) VerifiedPlayerRepository {
	if ctx == nil {
		return r
	}
	return &GormVerifiedPlayerRepository{db: r.db.WithContext(ctx)}
}

// Upsert 按序列号写入绑定记录
func (r *GormVerifiedPlayerRepository) Upsert(player *models.VerifiedPlayer) error {
	if player == nil {
		return errors.New("invalid verified player")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "serial"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "ip", "nickname", "verified_at"}),
	}).Create(player).Error
}

// GetBySerial 按序列号查询
func (r *GormVerifiedPlayerRepository) GetBySerial(serial string) (*models.VerifiedPlayer, error) {
	var player models.VerifiedPlayer
	if err := r.db.Where("serial = ?", serial).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &player, nil
}

// DeleteByOwner 删除某个 Discord 身份的绑定记录
func (r *GormVerifiedPlayerRepository) DeleteByOwner(ownerID string) (int64, error) {
	result := r.db.Where("owner_id = ?", ownerID).Delete(&models.VerifiedPlayer{})
	return result.RowsAffected, result.Error
}
