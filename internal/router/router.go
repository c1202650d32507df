package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paysub/internal/authz"
	"github.com/paysub/internal/cache"
	"github.com/paysub/internal/config"
	adminhandlers "github.com/paysub/internal/http/handlers/admin"
	publichandlers "github.com/paysub/internal/http/handlers/public"
	"github.com/paysub/internal/http/response"
	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/provider"

	"github.com/gin-gonic/gin"
)

const opsRoutePrefix = "/api/v1/ops/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	opsHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ps"
	}
	redisClient := cache.Client()
	orderIssueRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:order_issue", redisPrefix),
		WindowSeconds: cfg.RateLimit.OrderIssue.WindowSeconds,
		MaxRequests:   cfg.RateLimit.OrderIssue.MaxRequests,
		BlockSeconds:  cfg.RateLimit.OrderIssue.BlockSeconds,
	}
	notifyRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:notify", redisPrefix),
		WindowSeconds: cfg.RateLimit.Notify.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Notify.MaxRequests,
		BlockSeconds:  cfg.RateLimit.Notify.BlockSeconds,
		FailOpen:      true,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		public := apiV1.Group("/public")
		{
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 网关异步通知（无需鉴权，以签名校验）
		notify := RateLimitMiddleware(redisClient, notifyRule, KeyByIP)
		apiV1.POST("/payments/notify", notify, publicHandler.EpayNotify)
		apiV1.GET("/payments/notify", notify, publicHandler.EpayNotify)

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey))
		{
			user.POST("/orders", RateLimitMiddleware(redisClient, orderIssueRule, KeyByUserID), publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:order_no", publicHandler.GetOrderByOrderNo)
			user.POST("/orders/:order_no/pay-url", publicHandler.RegeneratePayURL)
			user.GET("/me/subscription", publicHandler.GetMySubscription)
		}

		// 运维接口
		ops := apiV1.Group("/ops")
		ops.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey))
		{
			ops.GET("/me/authz", opsHandler.GetMyAuthz)
			ops.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildOpsPermissionCatalog(r))
			})

			authorized := ops.Group("")
			authorized.Use(OpsRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/orders/:order_no", opsHandler.OpsGetOrder)
				authorized.GET("/orders/:order_no/notifications", opsHandler.OpsListOrderNotifications)
			}
		}
	}

	if cfg.Metrics.Enabled && c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type opsPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildOpsPermissionCatalog 从已注册路由生成可授权的运维资源清单
func buildOpsPermissionCatalog(engine *gin.Engine) []opsPermissionCatalogItem {
	if engine == nil {
		return []opsPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]opsPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, opsRoutePrefix) {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		if strings.HasPrefix(object, "/ops/me/") || strings.HasPrefix(object, "/ops/authz/") {
			continue
		}
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, opsPermissionCatalogItem{
			Module:     deriveOpsPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveOpsPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "ops" {
		return segments[0]
	}
	return segments[1]
}
