package provider

import (
	"github.com/stakehub-next/internal/authz"
	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/repository"
	"github.com/stakehub-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	UserRepo          repository.UserRepository
	ReferralRepo      repository.ReferralRepository
	ProjectRepo       repository.ProjectRepository
	InvestmentRepo    repository.InvestmentRepository
	OrganizationRepo  repository.OrganizationRepository
	SettingRepo       repository.SettingRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	UserService         *service.UserService
	ReferralService     *service.ReferralService
	OrganizationService *service.OrganizationService
	ProjectService      *service.ProjectService
	InvestmentService   *service.InvestmentService
	QRCodeService       *service.QRCodeService
	CaptchaService      *service.CaptchaService
	SettingService      *service.SettingService
	AuthzAuditService   *service.AuthzAuditService
	DashboardService    *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.ProjectRepo = repository.NewProjectRepository(db)
	c.InvestmentRepo = repository.NewInvestmentRepository(db)
	c.OrganizationRepo = repository.NewOrganizationRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	captchaSetting, err := c.SettingService.GetCaptchaSetting(c.Config.Captcha)
	if err != nil {
		logger.Warnw("provider_load_captcha_setting_failed", "error", err)
	} else {
		c.Config.Captcha = service.CaptchaSettingToConfig(captchaSetting)
	}

	c.CaptchaService = service.NewCaptchaService(c.SettingService, c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ReferralService = service.NewReferralService(c.Config, c.ReferralRepo, c.UserRepo, c.SettingService)
	c.UserService = service.NewUserService(c.Config, c.UserRepo, c.ReferralService)
	c.ProjectService = service.NewProjectService(c.ProjectRepo)
	c.InvestmentService = service.NewInvestmentService(c.Config, c.InvestmentRepo, c.ProjectRepo, c.UserRepo, c.QueueClient)
	c.OrganizationService = service.NewOrganizationService(c.Config, c.OrganizationRepo, c.QueueClient)
	c.QRCodeService = service.NewQRCodeService(c.ReferralService)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
