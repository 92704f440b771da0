package api

import (
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/api/handlers"
	"github.com/Mieluoxxx/Polaris-Guest/internal/api/middleware"
	"github.com/Mieluoxxx/Polaris-Guest/internal/config"
	"github.com/Mieluoxxx/Polaris-Guest/internal/dashboard"
	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/events"
	"github.com/Mieluoxxx/Polaris-Guest/internal/guesttoken"
	"github.com/Mieluoxxx/Polaris-Guest/internal/keys"
	"github.com/Mieluoxxx/Polaris-Guest/internal/stats"
	"github.com/Mieluoxxx/Polaris-Guest/internal/status"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, keyManager *keys.Manager, cfg *config.Config) *gin.Engine {
	// 创建 Gin 引擎
	router := gin.Default()

	// 健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Polaris-Guest",
		})
	})

	// 创建依赖
	dirService := directory.NewService(directory.NewRepository(db), keyManager)
	eventService := events.NewService(db)
	visibility := dashboard.NewVisibility(db)
	tokenRepo := guesttoken.NewRepository(db)
	tokenService := guesttoken.NewService(tokenRepo, dirService, visibility, eventService, keyManager, &cfg.Guest)

	statusService := status.NewService(tokenRepo, dirService, &cfg.Guest)
	tokenService.SetStatusNotifier(statusService)

	counter := stats.NewRedemptionCounter(60 * time.Second)

	// 兑换端点：无需认证，访客通过链接访问
	redeemHandler := handlers.NewRedeemHandler(tokenService, counter, &cfg.Guest)
	router.GET(cfg.Guest.LoginPath, middleware.RedemptionCounterMiddleware(counter), redeemHandler.Redeem)

	// 管理 API 路由组：仅限管理员
	apiGroup := router.Group("/api")
	apiGroup.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	apiGroup.Use(middleware.AdminAuthMiddleware(dirService))
	{
		setupGuestRoutes(apiGroup, tokenService, dirService, statusService, counter, eventService, &cfg.Guest)
	}

	return router
}

// setupGuestRoutes 配置访客令牌管理路由
func setupGuestRoutes(group *gin.RouterGroup, tokenService *guesttoken.Service, dirService *directory.Service, statusService *status.Service, counter *stats.RedemptionCounter, eventService *events.Service, cfg *config.GuestConfig) {
	guestHandler := handlers.NewGuestHandler(tokenService, dirService, cfg)
	statusHandler := handlers.NewStatusHandler(statusService, counter, eventService)

	// 注册路由
	guest := group.Group("/guest")
	{
		guest.GET("/users", guestHandler.ListGuestUsers)
		guest.GET("/groups", guestHandler.ListGroups)
		guest.POST("/tokens", guestHandler.CreateToken)
		guest.POST("/tokens/by-username", guestHandler.CreateTokenByUsername)
		guest.DELETE("/tokens/:id", guestHandler.DeleteToken)
		guest.GET("/login-path", guestHandler.GetLoginPath)
		guest.GET("/urls", guestHandler.GetURLs)
		guest.GET("/panels", guestHandler.GetPanels)
		guest.GET("/copy-link-mode", guestHandler.GetCopyLinkMode)
		guest.GET("/status", statusHandler.GetStatus)
		guest.GET("/qr", statusHandler.GetQRCode)
	}
}
