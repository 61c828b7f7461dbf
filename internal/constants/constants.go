package constants

import "time"

// 序列号格式常量
const (
	SerialLength = 32
)

// 申请状态常量
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusRejected = "rejected"
)

// 申请重提次数上限默认值
const (
	ApplicationMaxReapplyDefault = 1
)

// 临时验证常量
const (
	SessionTTLDefault    = 5 * time.Minute
	SweepIntervalDefault = 5 * time.Minute
	SweepCronDefault     = "@every 5m"
)

// 白名单列表分页常量
const (
	WhitelistPageSize = 10
)

// 权限动作常量（管理员）
const (
	ActionWhitelistGrant     = "whitelist.grant"
	ActionWhitelistRevoke    = "whitelist.revoke"
	ActionWhitelistList      = "whitelist.list"
	ActionVerificationRemove = "verification.remove"
	ActionPanelSend          = "panel.send"
	ActionApplicationReview  = "application.review"
)

// 权限动作常量（自助）
const (
	ActionApply      = "apply"
	ActionVerify     = "verify"
	ActionRedeemCode = "redeem_code"
)

// AdminActions 管理员动作集合
var AdminActions = []string{
	ActionWhitelistGrant,
	ActionWhitelistRevoke,
	ActionWhitelistList,
	ActionVerificationRemove,
	ActionPanelSend,
	ActionApplicationReview,
}

// SelfServiceActions 自助动作集合
var SelfServiceActions = []string{
	ActionApply,
	ActionVerify,
	ActionRedeemCode,
}

// 斜杠命令名称常量
const (
	CommandWhitelist          = "whitelist"
	CommandUnwhitelist        = "unwhitelist"
	CommandRemoveVerification = "removeverification"
	CommandVerifyCode         = "verifycode"
	CommandWhitelistInfo      = "whitelistinfo"
	CommandVerifyPanel        = "mtaverify"
	CommandApplyPanel         = "applypanel"
)

// 交互组件 ID 常量
const (
	CustomIDVerify              = "verify_mta"
	CustomIDOpenApplicationForm = "open_application_modal"
	CustomIDAcceptPrefix        = "accept_"
	CustomIDRejectPrefix        = "reject_"
	FormIDApplication           = "application_form"
)

// 申请表单字段 ID 常量
const (
	FormFieldName       = "name"
	FormFieldAge        = "age"
	FormFieldIngameName = "ingame_name"
	FormFieldIngameAge  = "ingame_age"
	FormFieldSerial     = "serial"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskSweepExpired         = "verification:sweep_expired"
	TaskDirectMessage        = "notify:direct_message"
	DirectMessageTaskTimeout = 10 * time.Second
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sg"
)

// 游戏服务器控制接口常量
const (
	GameServerTimeoutDefault = 3 * time.Second
	GameServerTokenTTL       = time.Minute
	GameServerTokenIssuer    = "serialguard"
	GameServerActionKick     = "kick"
)
