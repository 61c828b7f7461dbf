package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/queue"
	"github.com/serialguard/internal/repository"
	"github.com/serialguard/internal/service"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	adminRoleID = "777"
	testSerial  = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

var (
	adminCaller  = authz.Caller{UserID: "9", RoleIDs: []string{adminRoleID}}
	playerCaller = authz.Caller{UserID: "123"}
)

type sentMessage struct {
	channelID string
	reply     Reply
}

type fakeGateway struct {
	mu       sync.Mutex
	messages []sentMessage
	dms      map[string][]string
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{dms: map[string][]string{}}
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID string, reply Reply) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.messages = append(g.messages, sentMessage{channelID: channelID, reply: reply})
	return nil
}

func (g *fakeGateway) DirectMessage(_ context.Context, userID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.dms[userID] = append(g.dms[userID], content)
	return nil
}

type fakeResponder struct {
	mu        sync.Mutex
	defers    []bool
	replies   []Reply
	followUps []Reply
	firstAt   time.Time
	replyErr  error

	// panicAfterSend 在首次发送成功后 panic
	panicAfterSend bool
}

func (r *fakeResponder) record(fn func()) {
	r.mu.Lock()
	fn()
	if r.firstAt.IsZero() {
		r.firstAt = time.Now()
	}
	panicNow := r.panicAfterSend
	r.panicAfterSend = false
	r.mu.Unlock()
	if panicNow {
		panic("responder exploded after send")
	}
}

func (r *fakeResponder) Defer(_ context.Context, ephemeral bool) error {
	if r.replyErr != nil {
		return r.replyErr
	}
	r.record(func() { r.defers = append(r.defers, ephemeral) })
	return nil
}

func (r *fakeResponder) Reply(_ context.Context, reply Reply) error {
	if r.replyErr != nil {
		return r.replyErr
	}
	r.record(func() { r.replies = append(r.replies, reply) })
	return nil
}

func (r *fakeResponder) FollowUp(_ context.Context, reply Reply) error {
	r.record(func() { r.followUps = append(r.followUps, reply) })
	return nil
}

func (r *fakeResponder) deferCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.defers)
}

func (r *fakeResponder) followUpCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.followUps)
}

func (r *fakeResponder) total() int {
	return len(r.replies) + len(r.followUps)
}

func (r *fakeResponder) last() Reply {
	if len(r.followUps) > 0 {
		return r.followUps[len(r.followUps)-1]
	}
	if len(r.replies) > 0 {
		return r.replies[len(r.replies)-1]
	}
	return Reply{}
}

type fakeKicker struct{ serials []string }

func (k *fakeKicker) Kick(_ context.Context, serial string) error {
	k.serials = append(k.serials, serial)
	return nil
}

type botFixture struct {
	db         *gorm.DB
	gateway    *fakeGateway
	kicker     *fakeKicker
	dispatcher *Dispatcher
	now        time.Time
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	kicker := &fakeKicker{}
	f := newBotFixtureWithKicker(t, kicker, time.Second)
	f.kicker = kicker
	return f
}

func newBotFixtureWithKicker(t *testing.T, kicker service.Kicker, kickTimeout time.Duration) *botFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:bot_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	policy, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := policy.Bootstrap(adminRoleID); err != nil {
		t.Fatalf("bootstrap authz failed: %v", err)
	}
	queueClient, _ := queue.NewClient(nil)

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := repository.ClockFunc(func() time.Time { return now })
	whitelistRepo := repository.NewWhitelistRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	playerRepo := repository.NewVerifiedPlayerRepository(db)

	gateway := newFakeGateway()
	notifications := NewNotifications(gateway, "submissions", "logs")

	dispatcher := NewDispatcher(DispatcherDeps{
		Policy:       policy,
		Whitelist:    service.NewWhitelistService(whitelistRepo, sessionRepo, playerRepo, clock, kicker, kickTimeout),
		Verification: service.NewVerificationService(codeRepo, sessionRepo, playerRepo, whitelistRepo, clock, 5*time.Minute),
		Applications: service.NewApplicationService(appRepo, whitelistRepo, clock, notifications, queueClient, 1),
		Gateway:      gateway,
	})
	return &botFixture{db: db, gateway: gateway, dispatcher: dispatcher, now: now}
}

func (f *botFixture) handle(t *testing.T, caller authz.Caller, ev Event) Reply {
	t.Helper()
	r := &fakeResponder{}
	state := f.dispatcher.Handle(context.Background(), Interaction{ID: "i1", ChannelID: "here", Caller: caller, Event: ev}, r)
	if state != Responded {
		t.Fatalf("expected responded state, got %s", state)
	}
	if r.total() != 1 {
		t.Fatalf("expected exactly one reply, got %d", r.total())
	}
	if opensForm(ev) {
		if len(r.defers) != 0 || len(r.replies) != 1 {
			t.Fatalf("expected form sent as first response, defers=%d replies=%d", len(r.defers), len(r.replies))
		}
	} else if len(r.defers) != 1 || len(r.followUps) != 1 {
		t.Fatalf("expected deferred ack then follow up, defers=%d follow ups=%d", len(r.defers), len(r.followUps))
	}
	return r.last()
}

func command(name string, kv ...string) Command {
	args := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	return Command{Name: name, Args: args}
}

var errGatewayDown = errors.New("gateway down")
