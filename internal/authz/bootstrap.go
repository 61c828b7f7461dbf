package authz

import (
	"fmt"

	"github.com/serialguard/internal/constants"
)

// Bootstrap 初始化内置策略
// 管理员动作授予 role:admin，并把配置的 Discord 管理员角色挂到 role:admin 下；自助动作对所有人开放。
// 库中残留的其他内置主体策略会被清除。
func (s *Service) Bootstrap(adminRoleID string) error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	if err := s.syncPolicies(adminRole, constants.AdminActions); err != nil {
		return err
	}
	if err := s.syncPolicies(everyoneSubject, constants.SelfServiceActions); err != nil {
		return err
	}
	if adminRoleID == "" {
		return nil
	}
	return s.LinkDiscordRole(adminRoleID, adminRole)
}

func (s *Service) syncPolicies(subject string, actions []string) error {
	wanted := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		if err := s.GrantPolicy(subject, action); err != nil {
			return err
		}
		wanted[NormalizeAction(action)] = struct{}{}
	}
	policies, err := s.GetPolicies(subject)
	if err != nil {
		return err
	}
	for _, policy := range policies {
		if _, ok := wanted[policy.Action]; ok {
			continue
		}
		if _, err := s.enforcer.RemovePolicy(policy.Subject, policy.Action); err != nil {
			return fmt.Errorf("remove stale policy failed: %w", err)
		}
	}
	return nil
}
