package queue

import (
	"encoding/json"

	"github.com/serialguard/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSweepExpired 过期验证码与临时验证清理任务
	TaskSweepExpired = constants.TaskSweepExpired
	// TaskDirectMessage 私信通知任务
	TaskDirectMessage = constants.TaskDirectMessage
)

// DirectMessagePayload 私信通知任务载荷
type DirectMessagePayload struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewSweepExpiredTask 创建过期清理任务
func NewSweepExpiredTask() *asynq.Task {
	return asynq.NewTask(TaskSweepExpired, nil)
}

// NewDirectMessageTask 创建私信通知任务
func NewDirectMessageTask(payload DirectMessagePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectMessage, body), nil
}

// ParseDirectMessagePayload 解析私信通知任务载荷
func ParseDirectMessagePayload(body []byte) (DirectMessagePayload, error) {
	var payload DirectMessagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return DirectMessagePayload{}, err
	}
	return payload, nil
}
