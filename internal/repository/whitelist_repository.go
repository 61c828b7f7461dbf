package repository

import (
	"context"
	"errors"

	"github.com/serialguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WhitelistRepository 白名单数据访问接口
type WhitelistRepository interface {
	Upsert(entry *models.WhitelistEntry) error
	GetBySerial(serial string) (*models.WhitelistEntry, error)
	GetByOwner(ownerID string) (*models.WhitelistEntry, error)
	UpdateContact(serial, ownerID, ip, nickname string) (int64, error)
	DeleteBySerial(serial string) (int64, error)
	List(page, pageSize int) ([]models.WhitelistEntry, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) WhitelistRepository
	WithContext(ctx context.Context) WhitelistRepository
}

// GormWhitelistRepository GORM 实现
type GormWhitelistRepository struct {
	db *gorm.DB
}

// NewWhitelistRepository 创建白名单仓库
func NewWhitelistRepository(db *gorm.DB) *GormWhitelistRepository {
	return &GormWhitelistRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWhitelistRepository) WithTx(tx *gorm.DB) WhitelistRepository {
	if tx == nil {
		return r
	}
	return &GormWhitelistRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormWhitelistRepository) WithContext(ctx context.Context) WhitelistRepository {
	if ctx == nil {
		return r
	}
	return &GormWhitelistRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormWhitelistRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Upsert 按序列号写入白名单，已存在时覆盖归属人
func (r *GormWhitelistRepository) Upsert(entry *models.WhitelistEntry) error {
	if entry == nil {
		return errors.New("invalid whitelist entry")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "serial"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "granted_by", "granted_at"}),
	}).Create(entry).Error
}

// GetBySerial 按序列号查询
func (r *GormWhitelistRepository) GetBySerial(serial string) (*models.WhitelistEntry, error) {
	var entry models.WhitelistEntry
	if err := r.db.Where("serial = ?", serial).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetByOwner 按归属人查询（多条时取最近授予的一条）
func (r *GormWhitelistRepository) GetByOwner(ownerID string) (*models.WhitelistEntry, error) {
	var entry models.WhitelistEntry
	if err := r.db.Where("owner_id = ?", ownerID).
		Order("granted_at desc").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// UpdateContact 更新序列号对应的 IP 与昵称（仅当归属人匹配）
func (r *GormWhitelistRepository) UpdateContact(serial, ownerID, ip, nickname string) (int64, error) {
	result := r.db.Model(&models.WhitelistEntry{}).
		Where("serial = ? AND owner_id = ?", serial, ownerID).
		Updates(map[string]interface{}{
			"ip":       ip,
			"nickname": nickname,
		})
	return result.RowsAffected, result.Error
}

// DeleteBySerial 删除白名单记录
func (r *GormWhitelistRepository) DeleteBySerial(serial string) (int64, error) {
	result := r.db.Where("serial = ?", serial).Delete(&models.WhitelistEntry{})
	return result.RowsAffected, result.Error
}

// List 分页查询白名单
func (r *GormWhitelistRepository) List(page, pageSize int) ([]models.WhitelistEntry, int64, error) {
	query := r.db.Model(&models.WhitelistEntry{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, page, pageSize)

	var entries []models.WhitelistEntry
	if err := query.Order("granted_at desc, serial asc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
