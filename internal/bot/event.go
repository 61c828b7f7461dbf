package bot

import "github.com/serialguard/internal/authz"

// Event 入站交互事件，仅限本包定义的三种变体
type Event interface {
	isEvent()
}

// Command 斜杠命令
// Args 按选项名保存，用户与频道选项保存其 ID。
type Command struct {
	Name string
	Args map[string]string
}

// ButtonPress 按钮点击
type ButtonPress struct {
	ActionID string
}

// FormSubmit 表单提交
type FormSubmit struct {
	FormID string
	Fields map[string]string
}

func (Command) isEvent()     {}
func (ButtonPress) isEvent() {}
func (FormSubmit) isEvent()  {}

// Arg 读取命令参数
func (c Command) Arg(name string) string {
	if c.Args == nil {
		return ""
	}
	return c.Args[name]
}

// Field 读取表单字段
func (f FormSubmit) Field(id string) string {
	if f.Fields == nil {
		return ""
	}
	return f.Fields[id]
}

// Interaction 一次入站交互
type Interaction struct {
	ID        string
	ChannelID string
	Caller    authz.Caller
	Event     Event
}
