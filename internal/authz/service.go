package authz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	casbinTableName   = "casbin_rule"
	userSubjectFmt    = "user:%s"
	discordRoleFmt    = "discord_role:%s"
	discordRolePrefix = "discord_role:"
	rolePrefix        = "role:"
	everyoneSubject   = "*"
	adminRole         = "role:admin"
)

const defaultModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (p.sub == "*" || g(r.sub, p.sub) || r.sub == p.sub) && (r.act == p.act || p.act == "*")
`

// Caller 交互发起人
// RoleIDs 为发起人在服务器内持有的 Discord 角色 ID。
type Caller struct {
	UserID  string
	RoleIDs []string
}

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Action  string `json:"action"`
}

// Service Casbin 授权服务
// 管理员判定基于配置的 Discord 角色，自助动作对所有人开放
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}

	m, err := model.NewModelFromString(defaultModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.EnableAutoSave(true)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	return &Service{enforcer: enforcer}, nil
}

// Enforce 执行授权判断
func (s *Service) Enforce(sub, act string) (bool, error) {
	if s == nil || s.enforcer == nil {
		return false, fmt.Errorf("authz service unavailable")
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeAction(act))
}

// IsAuthorized 判断发起人是否可以执行动作
// 依次以用户主体与其持有的每个 Discord 角色主体判定，任一允许即放行；判定出错按拒绝处理。
func (s *Service) IsAuthorized(caller Caller, action string) bool {
	for _, subject := range SubjectsForCaller(caller) {
		allow, err := s.Enforce(subject, action)
		if err != nil {
			return false
		}
		if allow {
			return true
		}
	}
	return false
}

// LinkDiscordRole 将 Discord 角色挂到内置角色下（覆盖该内置角色原有的 Discord 角色绑定）
func (s *Service) LinkDiscordRole(discordRoleID, role string) error {
	discordRoleID = strings.TrimSpace(discordRoleID)
	if discordRoleID == "" {
		return fmt.Errorf("discord role id is required")
	}
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, normalizedRole)
	if err != nil {
		return fmt.Errorf("list role links failed: %w", err)
	}
	for _, rule := range rules {
		if len(rule) < 2 || !strings.HasPrefix(rule[0], discordRolePrefix) {
			continue
		}
		if _, err := s.enforcer.RemoveNamedGroupingPolicy("g", rule[0], rule[1]); err != nil {
			return fmt.Errorf("remove stale role link failed: %w", err)
		}
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", SubjectForDiscordRole(discordRoleID), normalizedRole); err != nil {
		return fmt.Errorf("link discord role failed: %w", err)
	}
	return nil
}

// GrantPolicy 为主体授予动作
func (s *Service) GrantPolicy(subject, action string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return fmt.Errorf("action is required")
	}
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	if _, err := s.enforcer.AddPolicy(subject, normalizedAction); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// GetPolicies 查询主体的直连策略
func (s *Service) GetPolicies(subject string) ([]Policy, error) {
	if s == nil || s.enforcer == nil {
		return nil, fmt.Errorf("authz service unavailable")
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, strings.TrimSpace(subject))
	if err != nil {
		return nil, fmt.Errorf("get policies failed: %w", err)
	}
	policies := convertPolicies(rules)
	sort.Slice(policies, func(i, j int) bool { return policies[i].Action < policies[j].Action })
	return policies, nil
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 2 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Action:  NormalizeAction(rule[1]),
		})
	}
	return policies
}

// SubjectsForCaller 生成发起人的全部判定主体
func SubjectsForCaller(caller Caller) []string {
	subjects := make([]string, 0, len(caller.RoleIDs)+1)
	if id := strings.TrimSpace(caller.UserID); id != "" {
		subjects = append(subjects, fmt.Sprintf(userSubjectFmt, id))
	}
	for _, roleID := range caller.RoleIDs {
		roleID = strings.TrimSpace(roleID)
		if roleID == "" {
			continue
		}
		subjects = append(subjects, SubjectForDiscordRole(roleID))
	}
	return subjects
}

// SubjectForDiscordRole 生成 Discord 角色主体标识
func SubjectForDiscordRole(roleID string) string {
	return fmt.Sprintf(discordRoleFmt, strings.TrimSpace(roleID))
}

// NormalizeRole 统一角色名称
func NormalizeRole(role string) (string, error) {
	normalized := strings.TrimSpace(role)
	if normalized == "" {
		return "", fmt.Errorf("role is required")
	}
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if !strings.HasPrefix(normalized, rolePrefix) {
		normalized = rolePrefix + normalized
	}
	if len(normalized) <= len(rolePrefix) {
		return "", fmt.Errorf("role is required")
	}
	return normalized, nil
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
