package bot

import "context"

// ResponseState 交互回复状态
type ResponseState int

const (
	NotResponded ResponseState = iota
	Responded
)

// String 返回状态名称
func (s ResponseState) String() string {
	if s == Responded {
		return "responded"
	}
	return "not_responded"
}

// Responder 交互回复通道
// Defer 只发送“处理中”确认，结果随后通过 FollowUp 送达。
type Responder interface {
	Defer(ctx context.Context, ephemeral bool) error
	Reply(ctx context.Context, reply Reply) error
	FollowUp(ctx context.Context, reply Reply) error
}

// Acknowledge 未回复时先发送延迟确认，返回新的状态
func Acknowledge(ctx context.Context, r Responder, state ResponseState, ephemeral bool) (ResponseState, error) {
	if state != NotResponded {
		return state, nil
	}
	if err := r.Defer(ctx, ephemeral); err != nil {
		return state, err
	}
	return Responded, nil
}

// Respond 按当前状态选择首次回复或追加回复，返回新的状态
// 发送失败时状态保持不变。
func Respond(ctx context.Context, r Responder, state ResponseState, reply Reply) (ResponseState, error) {
	var err error
	switch state {
	case NotResponded:
		err = r.Reply(ctx, reply)
	default:
		err = r.FollowUp(ctx, reply)
	}
	if err != nil {
		return state, err
	}
	return Responded, nil
}
