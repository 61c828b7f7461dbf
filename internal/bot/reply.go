package bot

// ButtonStyle 按钮样式
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSuccess
	ButtonDanger
)

// EmbedField 嵌入字段
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed 嵌入消息
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// Button 交互按钮
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// TextInput 表单文本输入
type TextInput struct {
	ID        string
	Label     string
	MinLength int
	MaxLength int
	Required  bool
	Paragraph bool
}

// Form 弹出表单
type Form struct {
	ID     string
	Title  string
	Inputs []TextInput
}

// Reply 回复内容
// Form 不为空时以弹出表单回应，其余字段忽略。
type Reply struct {
	Content   string
	Embeds    []Embed
	Buttons   []Button
	Ephemeral bool
	Form      *Form
}
