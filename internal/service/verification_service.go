package service

import (
	"context"
	"strings"
	"time"

	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/repository"
)

// SweepResult 过期清理结果
type SweepResult struct {
	Sessions int64
	Codes    int64
}

// VerificationService 验证码兑换与临时验证
type VerificationService struct {
	codeRepo      repository.VerificationCodeRepository
	sessionRepo   repository.SessionRepository
	playerRepo    repository.VerifiedPlayerRepository
	whitelistRepo repository.WhitelistRepository
	clock         repository.Clock
	sessionTTL    time.Duration
}

// NewVerificationService 创建验证服务
func NewVerificationService(
	codeRepo repository.VerificationCodeRepository,
	sessionRepo repository.SessionRepository,
	playerRepo repository.VerifiedPlayerRepository,
	whitelistRepo repository.WhitelistRepository,
	clock repository.Clock,
	sessionTTL time.Duration,
) *VerificationService {
	if sessionTTL <= 0 {
		sessionTTL = constants.SessionTTLDefault
	}
	return &VerificationService{
		codeRepo:      codeRepo,
		sessionRepo:   sessionRepo,
		playerRepo:    playerRepo,
		whitelistRepo: whitelistRepo,
		clock:         clock,
		sessionTTL:    sessionTTL,
	}
}

// SessionTTL 返回临时验证有效期
func (s *VerificationService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// RedeemCode 兑换游戏内验证码，把序列号、IP、昵称绑定到 Discord 身份
// 验证码一经查到即被删除，删除成功者才视为兑换成功，保证同一验证码至多兑换一次。
func (s *VerificationService) RedeemCode(ctx context.Context, code, ownerID string) (*models.VerifiedPlayer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	ownerID = strings.TrimSpace(ownerID)
	if code == "" || ownerID == "" {
		return nil, ErrMissingField
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}

	codeRepo := s.codeRepo.WithContext(ctx)
	record, err := codeRepo.GetValid(code, now)
	if err != nil {
		return nil, storeError("get verification code", err)
	}
	if record == nil {
		return nil, ErrCodeInvalidOrExpired
	}
	claimed, err := codeRepo.DeleteByCode(code)
	if err != nil {
		return nil, storeError("delete verification code", err)
	}
	if claimed == 0 {
		return nil, ErrCodeInvalidOrExpired
	}

	if _, err := s.whitelistRepo.WithContext(ctx).UpdateContact(record.Serial, ownerID, record.IP, record.Nickname); err != nil {
		logger.Warnw("verification_update_contact_failed",
			"owner_id", ownerID,
			"serial", record.Serial,
			"error", err,
		)
	}

	player := &models.VerifiedPlayer{
		Serial:     record.Serial,
		OwnerID:    ownerID,
		IP:         record.IP,
		Nickname:   record.Nickname,
		VerifiedAt: now,
	}
	if err := s.playerRepo.WithContext(ctx).Upsert(player); err != nil {
		return nil, storeError("upsert verified player", err)
	}
	return player, nil
}

// BeginSession 为白名单内的身份开启临时验证
// 已存在时以当前时间重新计算，不在原有效期上累加。
func (s *VerificationService) BeginSession(ctx context.Context, ownerID string) (*models.Session, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrMissingField
	}
	entry, err := s.whitelistRepo.WithContext(ctx).GetByOwner(ownerID)
	if err != nil {
		return nil, storeError("get whitelist entry", err)
	}
	if entry == nil {
		return nil, ErrNotWhitelisted
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}
	session := &models.Session{
		Serial:     entry.Serial,
		OwnerID:    ownerID,
		VerifiedAt: now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if err := s.sessionRepo.WithContext(ctx).Upsert(session); err != nil {
		return nil, storeError("upsert session", err)
	}
	return session, nil
}

// RemoveSessions 删除某个身份的全部临时验证
func (s *VerificationService) RemoveSessions(ctx context.Context, ownerID string) (int64, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, ErrMissingField
	}
	removed, err := s.sessionRepo.WithContext(ctx).DeleteByOwner(ownerID)
	if err != nil {
		return 0, storeError("delete sessions", err)
	}
	return removed, nil
}

// SweepExpired 清理 expires_at <= now 的临时验证与验证码，可重复执行
func (s *VerificationService) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	sessions, err := s.sessionRepo.WithContext(ctx).DeleteExpired(now)
	if err != nil {
		return result, storeError("sweep sessions", err)
	}
	result.Sessions = sessions
	codes, err := s.codeRepo.WithContext(ctx).DeleteExpired(now)
	if err != nil {
		return result, storeError("sweep verification codes", err)
	}
	result.Codes = codes
	return result, nil
}

// SweepNow 以数据库当前时间执行一次清理
func (s *VerificationService) SweepNow(ctx context.Context) (SweepResult, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return SweepResult{}, storeError("read clock", err)
	}
	return s.SweepExpired(ctx, now)
}
