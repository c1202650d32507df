package admin

import "github.com/paysub/internal/provider"

// Handler 运维接口处理器入口
// 说明：路由层已完成 JWT 与 RBAC 校验。
type Handler struct {
	*provider.Container
}

// New 创建运维处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
