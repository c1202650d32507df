package provider

import (
	"github.com/paysub/internal/authz"
	"github.com/paysub/internal/cache"
	"github.com/paysub/internal/catalog"
	"github.com/paysub/internal/config"
	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/metrics"
	"github.com/paysub/internal/models"
	"github.com/paysub/internal/queue"
	"github.com/paysub/internal/repository"
	"github.com/paysub/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.PaymentMetrics
	Catalog     catalog.Catalog

	// Repositories
	OrderRepo        repository.OrderRepository
	NotificationRepo repository.NotificationRepository

	// Services
	AuthzService        *authz.Service
	CaptchaService      *service.CaptchaService
	OrderService        *service.OrderService
	PaymentService      *service.PaymentService
	SubscriptionService *service.SubscriptionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		return nil, err
	}

	productCatalog, err := catalog.NewStaticCatalog(cfg.Catalog.Products)
	if err != nil {
		logger.Errorw("provider_init_catalog_failed", "error", err)
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Catalog:     productCatalog,
	}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.Default()
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
}

func (c *Container) initServices() error {
	if c.Config.Authz.Enabled {
		authzService, err := authz.NewService(models.DB, c.Config.Authz.PolicyTable)
		if err != nil {
			logger.Errorw("provider_init_authz_failed", "error", err)
			return err
		}
		if c.Config.Authz.AutoBootstrap {
			if err := authzService.BootstrapBuiltinRoles(); err != nil {
				logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
				return err
			}
			if err := authzService.BootstrapAssignments(c.Config.Authz.SupportUsers, c.Config.Authz.AuditorUsers); err != nil {
				logger.Errorw("provider_bootstrap_role_assignments_failed", "error", err)
				return err
			}
		}
		c.AuthzService = authzService
	}

	epayCfg := c.Config.Payment.Epay.ToEpayConfig()
	if err := epayCfg.Validate(); err != nil {
		// 配置缺失不阻止启动，下单与回调时按配置错误返回
		logger.Warnw("provider_epay_config_invalid", "error", err)
	}

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.Catalog, epayCfg, service.OrderOptions{
		NumberSuffixDigits: c.Config.Order.NumberSuffixDigits,
		MaxCreateAttempts:  c.Config.Order.MaxCreateAttempts,
	}, c.Metrics)
	c.SubscriptionService = service.NewSubscriptionService(c.OrderRepo)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.NotificationRepo, epayCfg, c.QueueClient, c.Metrics).
		WithAmountTolerance(c.Config.Order.AmountTolerance).
		WithSubscriptionCache(c.SubscriptionService)
	return nil
}
