package service

import (
	"context"
	"strings"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/repository"
)

// JoinReport 游戏服务器上报的入服信息
type JoinReport struct {
	Nickname string `json:"nickname"`
	Serial   string `json:"serial"`
	IP       string `json:"ip"`
}

// JoinNotice 入服通知内容
// Linked 为 false 表示序列号未绑定任何 Discord 身份。
type JoinNotice struct {
	Nickname string
	Serial   string
	IP       string
	OwnerID  string
	Linked   bool
}

// JoinService 入服上报处理
type JoinService struct {
	whitelistRepo repository.WhitelistRepository
	playerRepo    repository.VerifiedPlayerRepository
	notifier      Notifier
}

// NewJoinService 创建入服上报服务
func NewJoinService(whitelistRepo repository.WhitelistRepository, playerRepo repository.VerifiedPlayerRepository, notifier Notifier) *JoinService {
	return &JoinService{whitelistRepo: whitelistRepo, playerRepo: playerRepo, notifier: notifier}
}

// ReportJoin 解析序列号归属并向日志频道发送通知
// 白名单优先；不在白名单时回退到验证码绑定记录。
func (s *JoinService) ReportJoin(ctx context.Context, report JoinReport) (*JoinNotice, error) {
	notice := JoinNotice{
		Nickname: strings.TrimSpace(report.Nickname),
		Serial:   authz.NormalizeSerial(report.Serial),
		IP:       strings.TrimSpace(report.IP),
	}
	if notice.Nickname == "" || notice.Serial == "" || notice.IP == "" {
		return nil, ErrMissingField
	}

	entry, err := s.whitelistRepo.WithContext(ctx).GetBySerial(notice.Serial)
	if err != nil {
		return nil, storeError("get whitelist entry", err)
	}
	if entry != nil {
		notice.OwnerID = entry.OwnerID
		notice.Linked = true
	} else if s.playerRepo != nil {
		player, err := s.playerRepo.WithContext(ctx).GetBySerial(notice.Serial)
		if err != nil {
			return nil, storeError("get verified player", err)
		}
		if player != nil {
			notice.OwnerID = player.OwnerID
			notice.Linked = true
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PostJoinNotice(ctx, notice); err != nil {
			logger.Warnw("join_notice_post_failed",
				"serial", notice.Serial,
				"nickname", notice.Nickname,
				"error", err,
			)
		}
	}
	return &notice, nil
}
