package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stakehub-next/internal/authz"
	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/config"
	adminhandlers "github.com/stakehub-next/internal/http/handlers/admin"
	publichandlers "github.com/stakehub-next/internal/http/handlers/public"
	"github.com/stakehub-next/internal/http/response"
	"github.com/stakehub-next/internal/logger"
	"github.com/stakehub-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sh"
	}
	redisClient := cache.Client()
	connectRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:connect", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "操作过于频繁，请稍后再试",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "操作过于频繁，请稍后再试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/projects", publicHandler.ListProjects)
			public.GET("/projects/:id", publicHandler.GetProject)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 钱包连接（连接即注册，无需鉴权）
		wallet := apiV1.Group("/wallet")
		{
			wallet.POST("/connect", RateLimitMiddleware(redisClient, connectRule, KeyByIPAndJSONField("wallet_address")), publicHandler.ConnectWallet)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetMe)
			user.GET("/me/referral", publicHandler.GetMyReferral)
			user.GET("/me/referral/qrcode", publicHandler.GetMyReferralQRCode)
			user.GET("/me/team", publicHandler.GetMyTeam)
			user.POST("/investments", publicHandler.SubmitInvestment)
			user.GET("/investments", publicHandler.ListMyInvestments)
			user.GET("/investments/summary", publicHandler.GetMyInvestmentSummary)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
				authorized.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

				// 质押项目管理
				authorized.GET("/projects", adminHandler.GetAdminProjects)
				authorized.GET("/projects/:id", adminHandler.GetAdminProject)
				authorized.POST("/projects", adminHandler.CreateProject)
				authorized.PUT("/projects/:id", adminHandler.UpdateProject)
				authorized.DELETE("/projects/:id", adminHandler.DeleteProject)

				// 用户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.PATCH("/users/status", adminHandler.BatchUpdateUserStatus)
				authorized.GET("/users/:wallet", adminHandler.GetAdminUser)
				authorized.PUT("/users/:wallet/referrer", adminHandler.UpdateUserReferrer)

				// 推荐关系
				authorized.GET("/referrals", adminHandler.GetAdminReferrals)

				// 组织架构
				authorized.GET("/organization/forest", adminHandler.GetOrganizationForest)
				authorized.GET("/organization/tree", adminHandler.GetOrganizationTree)
				authorized.GET("/organization/team/:wallet", adminHandler.GetOrganizationTeam)
				authorized.GET("/organization/export", adminHandler.ExportOrganizationCSV)
				authorized.POST("/organization/export", adminHandler.RequestOrganizationCSVExport)
				authorized.GET("/organization/export/:token", adminHandler.GetOrganizationCSVExport)

				// 投资记录
				authorized.GET("/investments", adminHandler.GetAdminInvestments)
				authorized.GET("/investments/:id", adminHandler.GetAdminInvestment)
				authorized.PATCH("/investments/:id/status", adminHandler.UpdateInvestmentStatus)

				// 设置管理
				authorized.GET("/settings", adminHandler.GetSettings)
				authorized.PUT("/settings", adminHandler.UpdateSettings)
				authorized.GET("/settings/captcha", adminHandler.GetCaptchaSettings)
				authorized.PUT("/settings/captcha", adminHandler.UpdateCaptchaSettings)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id", adminHandler.UpdateAuthzAdmin)
				authorized.DELETE("/authz/admins/:id", adminHandler.DeleteAuthzAdmin)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
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

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
