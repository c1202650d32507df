package admin

import (
	"github.com/paysub/internal/authz"
	"github.com/paysub/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetMyAuthz 当前用户的运维角色与策略
func (h *Handler) GetMyAuthz(c *gin.Context) {
	uid, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.AuthzService == nil {
		response.Success(c, gin.H{"roles": []string{}, "policies": []authz.Policy{}})
		return
	}

	roles, err := h.AuthzService.GetUserRoles(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	policies := make([]authz.Policy, 0)
	for _, role := range roles {
		items, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
			return
		}
		policies = append(policies, items...)
	}
	response.Success(c, gin.H{"roles": roles, "policies": policies})
}
