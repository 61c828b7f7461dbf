package service

import (
	"context"
	"strings"
	"time"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/repository"

	"gorm.io/gorm"
)

// EntryView 白名单展示行
type EntryView struct {
	Entry      models.WhitelistEntry
	HasSession bool
}

// EntryPage 白名单分页结果
type EntryPage struct {
	Items      []EntryView
	Page       int
	TotalPages int
	Total      int64
}

// WhitelistService 管理员授予/吊销白名单
type WhitelistService struct {
	whitelistRepo repository.WhitelistRepository
	sessionRepo   repository.SessionRepository
	playerRepo    repository.VerifiedPlayerRepository
	clock         repository.Clock
	kicker        Kicker
	kickTimeout   time.Duration
}

// NewWhitelistService 创建白名单服务
func NewWhitelistService(
	whitelistRepo repository.WhitelistRepository,
	sessionRepo repository.SessionRepository,
	playerRepo repository.VerifiedPlayerRepository,
	clock repository.Clock,
	kicker Kicker,
	kickTimeout time.Duration,
) *WhitelistService {
	if kickTimeout <= 0 {
		kickTimeout = constants.GameServerTimeoutDefault
	}
	return &WhitelistService{
		whitelistRepo: whitelistRepo,
		sessionRepo:   sessionRepo,
		playerRepo:    playerRepo,
		clock:         clock,
		kicker:        kicker,
		kickTimeout:   kickTimeout,
	}
}

// Grant 授予白名单，序列号已存在时覆盖归属人
func (s *WhitelistService) Grant(ctx context.Context, serial, ownerID, grantedBy string) (*models.WhitelistEntry, error) {
	serial = authz.NormalizeSerial(serial)
	ownerID = strings.TrimSpace(ownerID)
	if serial == "" || ownerID == "" {
		return nil, ErrMissingField
	}
	if !authz.ValidateSerial(serial) {
		return nil, ErrInvalidSerial
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}
	entry := &models.WhitelistEntry{
		Serial:    serial,
		OwnerID:   ownerID,
		GrantedBy: strings.TrimSpace(grantedBy),
		GrantedAt: now,
	}
	if err := s.whitelistRepo.WithContext(ctx).Upsert(entry); err != nil {
		return nil, storeError("upsert whitelist entry", err)
	}
	return entry, nil
}

// Revoke 吊销白名单
// 同一事务内删除临时验证、归属人的绑定记录与白名单本身；事务提交后尽力通知游戏服务器踢出，失败只记日志。
// ctx 携带 WithDeferredEffects 队列时踢出推迟到 flush。
func (s *WhitelistService) Revoke(ctx context.Context, serial string) (*models.WhitelistEntry, error) {
	serial = authz.NormalizeSerial(serial)
	if serial == "" {
		return nil, ErrMissingField
	}
	if !authz.ValidateSerial(serial) {
		return nil, ErrInvalidSerial
	}

	var revoked *models.WhitelistEntry
	err := s.whitelistRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		whitelistRepo := s.whitelistRepo.WithTx(tx)
		entry, err := whitelistRepo.GetBySerial(serial)
		if err != nil {
			return storeError("get whitelist entry", err)
		}
		if entry == nil {
			return ErrEntryNotFound
		}
		if _, err := s.sessionRepo.WithTx(tx).DeleteBySerial(serial); err != nil {
			return storeError("delete sessions", err)
		}
		if _, err := s.playerRepo.WithTx(tx).DeleteByOwner(entry.OwnerID); err != nil {
			return storeError("delete verified players", err)
		}
		if _, err := whitelistRepo.DeleteBySerial(serial); err != nil {
			return storeError("delete whitelist entry", err)
		}
		revoked = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	runEffect(ctx, func(ctx context.Context) { s.kick(ctx, serial) })
	return revoked, nil
}

func (s *WhitelistService) kick(ctx context.Context, serial string) {
	if s.kicker == nil {
		return
	}
	kickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.kickTimeout)
	defer cancel()
	if err := s.kicker.Kick(kickCtx, serial); err != nil {
		logger.Warnw("whitelist_revoke_kick_failed",
			"serial", serial,
			"error", err,
		)
	}
}

// List 分页列出白名单，并标记当前是否存在有效临时验证
func (s *WhitelistService) List(ctx context.Context, page int) (*EntryPage, error) {
	if page < 1 {
		page = 1
	}
	pageSize := constants.WhitelistPageSize
	entries, total, err := s.whitelistRepo.WithContext(ctx).List(page, pageSize)
	if err != nil {
		return nil, storeError("list whitelist entries", err)
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}

	serials := make([]string, 0, len(entries))
	for _, entry := range entries {
		serials = append(serials, entry.Serial)
	}
	sessions, err := s.sessionRepo.WithContext(ctx).ListActiveBySerials(serials, now)
	if err != nil {
		return nil, storeError("list active sessions", err)
	}
	active := make(map[string]struct{}, len(sessions))
	for _, session := range sessions {
		if session.ActiveAt(now) {
			active[session.Serial] = struct{}{}
		}
	}

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		_, ok := active[entry.Serial]
		items = append(items, EntryView{Entry: entry, HasSession: ok})
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &EntryPage{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}
