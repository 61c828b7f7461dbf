package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/queue"
	"github.com/serialguard/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	testSerial      = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	testSerialLower = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	otherSerial     = "0123456789ABCDEF0123456789ABCDEF"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now(_ context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeNotifier struct {
	mu             sync.Mutex
	reviewRequests []models.Application
	directMessages map[string][]string
	joinNotices    []JoinNotice
	err            error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{directMessages: map[string][]string{}}
}

func (n *fakeNotifier) SendReviewRequest(_ context.Context, app *models.Application) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewRequests = append(n.reviewRequests, *app)
	return n.err
}

func (n *fakeNotifier) DirectMessage(_ context.Context, userID, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.directMessages[userID] = append(n.directMessages[userID], content)
	return n.err
}

func (n *fakeNotifier) PostJoinNotice(_ context.Context, notice JoinNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joinNotices = append(n.joinNotices, notice)
	return n.err
}

type fakeKicker struct {
	serials []string
	err     error
}

func (k *fakeKicker) Kick(ctx context.Context, serial string) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("kick called without deadline")
	}
	k.serials = append(k.serials, serial)
	return k.err
}

type serviceFixture struct {
	db            *gorm.DB
	clock         *testClock
	notifier      *fakeNotifier
	kicker        *fakeKicker
	whitelistRepo *repository.GormWhitelistRepository
	appRepo       *repository.GormApplicationRepository
	codeRepo      *repository.GormVerificationCodeRepository
	sessionRepo   *repository.GormSessionRepository
	playerRepo    *repository.GormVerifiedPlayerRepository
	applications  *ApplicationService
	verification  *VerificationService
	whitelist     *WhitelistService
	join          *JoinService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}

	f := &serviceFixture{
		db:            db,
		clock:         newTestClock(),
		notifier:      newFakeNotifier(),
		kicker:        &fakeKicker{},
		whitelistRepo: repository.NewWhitelistRepository(db),
		appRepo:       repository.NewApplicationRepository(db),
		codeRepo:      repository.NewVerificationCodeRepository(db),
		sessionRepo:   repository.NewSessionRepository(db),
		playerRepo:    repository.NewVerifiedPlayerRepository(db),
	}
	f.applications = NewApplicationService(f.appRepo, f.whitelistRepo, f.clock, f.notifier, queueClient, 1)
	f.verification = NewVerificationService(f.codeRepo, f.sessionRepo, f.playerRepo, f.whitelistRepo, f.clock, 5*time.Minute)
	f.whitelist = NewWhitelistService(f.whitelistRepo, f.sessionRepo, f.playerRepo, f.clock, f.kicker, time.Second)
	f.join = NewJoinService(f.whitelistRepo, f.playerRepo, f.notifier)
	return f
}

func (f *serviceFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func validFields(serial string) ApplicationFields {
	return ApplicationFields{
		Name:       "Bob",
		Age:        "21",
		IngameName: "Bobby Brown",
		IngameAge:  "30",
		Serial:     serial,
	}
}
