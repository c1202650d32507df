package authz

import (
	"fmt"

	"github.com/paysub/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置运维角色
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleAuditor,
			Policies: []Policy{
				{Object: "/ops/orders/:order_no/notifications", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleSupport,
			Inherits: []string{constants.RoleAuditor},
			Policies: []Policy{
				{Object: "/ops/orders/:order_no", Action: "GET"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

// BootstrapAssignments 按配置为用户授予预置角色
func (s *Service) BootstrapAssignments(supportUsers, auditorUsers []uint) error {
	for _, id := range supportUsers {
		if _, err := s.AssignUserRole(id, constants.RoleSupport); err != nil {
			return err
		}
	}
	for _, id := range auditorUsers {
		if _, err := s.AssignUserRole(id, constants.RoleAuditor); err != nil {
			return err
		}
	}
	return nil
}
