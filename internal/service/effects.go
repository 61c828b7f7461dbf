package service

import (
	"context"
	"sync"

	"github.com/serialguard/internal/logger"
)

type effectsKey struct{}

// effectQueue 收集请求内的外部副作用（踢人、私信、审核通知）
type effectQueue struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// WithDeferredEffects 让 ctx 上的外部副作用推迟执行
// 调用方在回复用户之后执行返回的 flush；未携带队列的 ctx 上副作用立即执行。
func WithDeferredEffects(ctx context.Context) (context.Context, func()) {
	pending := &effectQueue{}
	flush := func() {
		pending.mu.Lock()
		fns := pending.fns
		pending.fns = nil
		pending.mu.Unlock()
		effectCtx := context.WithoutCancel(ctx)
		for _, fn := range fns {
			runEffectSafely(effectCtx, fn)
		}
	}
	return context.WithValue(ctx, effectsKey{}, pending), flush
}

// runEffect 执行或登记一个外部副作用
func runEffect(ctx context.Context, fn func(ctx context.Context)) {
	if pending, ok := ctx.Value(effectsKey{}).(*effectQueue); ok && pending != nil {
		pending.mu.Lock()
		pending.fns = append(pending.fns, fn)
		pending.mu.Unlock()
		return
	}
	fn(ctx)
}

func runEffectSafely(ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorw("deferred_effect_panic", "panic", rec)
		}
	}()
	fn(ctx)
}
