package service

import (
	"context"
	"strings"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/queue"
	"github.com/serialguard/internal/repository"

	"gorm.io/gorm"
)

const (
	applicationAcceptedMessage = "✅ Your whitelist application has been accepted. You can now verify and join the server."
	applicationRejectedMessage = "❌ Your whitelist application has been rejected."
	applicationRetryHint       = " You may submit one more application."
)

// ApplicationFields 申请表单字段
type ApplicationFields struct {
	Name       string
	Age        string
	IngameName string
	IngameAge  string
	Serial     string
}

func (f ApplicationFields) normalized() ApplicationFields {
	return ApplicationFields{
		Name:       strings.TrimSpace(f.Name),
		Age:        strings.TrimSpace(f.Age),
		IngameName: strings.TrimSpace(f.IngameName),
		IngameAge:  strings.TrimSpace(f.IngameAge),
		Serial:     authz.NormalizeSerial(f.Serial),
	}
}

func (f ApplicationFields) validate() error {
	if f.Name == "" || f.Age == "" || f.IngameName == "" || f.IngameAge == "" || f.Serial == "" {
		return ErrMissingField
	}
	if !authz.ValidateSerial(f.Serial) {
		return ErrInvalidSerial
	}
	return nil
}

// ApplicationService 白名单申请流程
type ApplicationService struct {
	appRepo       repository.ApplicationRepository
	whitelistRepo repository.WhitelistRepository
	clock         repository.Clock
	notifier      Notifier
	messenger     directMessenger
	maxReapply    int
}

// NewApplicationService 创建申请服务
func NewApplicationService(
	appRepo repository.ApplicationRepository,
	whitelistRepo repository.WhitelistRepository,
	clock repository.Clock,
	notifier Notifier,
	queueClient *queue.Client,
	maxReapply int,
) *ApplicationService {
	if maxReapply < 0 {
		maxReapply = constants.ApplicationMaxReapplyDefault
	}
	return &ApplicationService{
		appRepo:       appRepo,
		whitelistRepo: whitelistRepo,
		clock:         clock,
		notifier:      notifier,
		messenger:     directMessenger{notifier: notifier, queueClient: queueClient},
		maxReapply:    maxReapply,
	}
}

// Submit 提交申请
// 已有待审申请时覆盖并计为一次重提；被拒绝后允许按上限重提，超出返回 ErrReapplyLimitReached。
func (s *ApplicationService) Submit(ctx context.Context, ownerID string, fields ApplicationFields) (*models.Application, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrMissingField
	}
	fields = fields.normalized()
	if err := fields.validate(); err != nil {
		return nil, err
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}

	var created *models.Application
	err = s.appRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.appRepo.WithTx(tx)
		existing, err := repo.GetByOwner(ownerID)
		if err != nil {
			return storeError("get application", err)
		}
		reapplyCount := 0
		if existing != nil {
			next, ok := nextReapplyCount(existing, s.maxReapply)
			if !ok {
				return ErrReapplyLimitReached
			}
			reapplyCount = next
			if _, err := repo.DeleteByOwner(ownerID); err != nil {
				return storeError("delete application", err)
			}
		}
		app := &models.Application{
			OwnerID:      ownerID,
			Serial:       fields.Serial,
			Name:         fields.Name,
			Age:          fields.Age,
			IngameName:   fields.IngameName,
			IngameAge:    fields.IngameAge,
			ReapplyCount: reapplyCount,
			Status:       constants.ApplicationStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Create(app); err != nil {
			return storeError("create application", err)
		}
		created = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		review := *created
		runEffect(ctx, func(ctx context.Context) {
			if err := s.notifier.SendReviewRequest(ctx, &review); err != nil {
				logger.Warnw("application_review_request_failed",
					"owner_id", review.OwnerID,
					"serial", review.Serial,
					"error", err,
				)
			}
		})
	}
	return created, nil
}

// nextReapplyCount 计算重提后的计数
// 待审申请被覆盖时计数 +1；被拒绝的申请在拒绝时已累加，重提沿用该计数。
func nextReapplyCount(existing *models.Application, maxReapply int) (int, bool) {
	if existing.Status == constants.ApplicationStatusRejected {
		if existing.ReapplyCount > maxReapply {
			return 0, false
		}
		return existing.ReapplyCount, true
	}
	if existing.ReapplyCount >= maxReapply {
		return 0, false
	}
	return existing.ReapplyCount + 1, true
}

// Accept 通过申请：写入白名单并删除申请
// 只处理待审申请，已拒绝的申请返回 ErrApplicationReviewed。
func (s *ApplicationService) Accept(ctx context.Context, ownerID, approver string) (*models.WhitelistEntry, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrMissingField
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}

	var entry *models.WhitelistEntry
	err = s.appRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appRepo := s.appRepo.WithTx(tx)
		app, err := appRepo.GetByOwner(ownerID)
		if err != nil {
			return storeError("get application", err)
		}
		if app == nil {
			return ErrApplicationNotFound
		}
		if app.Status != constants.ApplicationStatusPending {
			return ErrApplicationReviewed
		}
		entry = &models.WhitelistEntry{
			Serial:    app.Serial,
			OwnerID:   app.OwnerID,
			GrantedBy: strings.TrimSpace(approver),
			GrantedAt: now,
		}
		if err := s.whitelistRepo.WithTx(tx).Upsert(entry); err != nil {
			return storeError("upsert whitelist entry", err)
		}
		if _, err := appRepo.DeleteByOwner(ownerID); err != nil {
			return storeError("delete application", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.messenger.send(ctx, ownerID, applicationAcceptedMessage, "application_accepted")
	return entry, nil
}

// Reject 拒绝待审申请：保留记录并累加重提计数
// 申请已被拒绝时返回 ErrApplicationReviewed，计数不变。
func (s *ApplicationService) Reject(ctx context.Context, ownerID string) (*models.Application, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrMissingField
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, storeError("read clock", err)
	}
	repo := s.appRepo.WithContext(ctx)
	affected, err := repo.MarkRejected(ownerID, now)
	if err != nil {
		return nil, storeError("reject application", err)
	}
	app, err := repo.GetByOwner(ownerID)
	if err != nil {
		return nil, storeError("get application", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if affected == 0 {
		return nil, ErrApplicationReviewed
	}

	message := applicationRejectedMessage
	if s.CanResubmit(app) {
		message += applicationRetryHint
	}
	s.messenger.send(ctx, ownerID, message, "application_rejected")
	return app, nil
}

// CanResubmit 判断申请记录是否仍允许重提
func (s *ApplicationService) CanResubmit(app *models.Application) bool {
	if app == nil {
		return true
	}
	_, ok := nextReapplyCount(app, s.maxReapply)
	return ok
}
