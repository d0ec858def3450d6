package handler

import (
	"coingate/internal/config"
	"coingate/internal/infrastructure/mail"
	"coingate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, mailer mail.Mailer) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 组装服务
	sessions := service.NewSessionService(db)
	ledger := service.NewLedgerService(db, rdb, cfg)
	wallet := service.NewWalletService(db, rdb, cfg, sessions)
	users := service.NewUserService(db, cfg, mailer)

	h := NewHandler(cfg, ledger, wallet, sessions, users)
	authed := AuthRequired(cfg.Auth.JWTSecret, users)

	api := r.Group("/api")
	{
		// 对接方签名协议
		api.GET("/balance", h.ProviderBalance)
		api.POST("/users", h.ProviderUsers)

		order := api.Group("/order")
		{
			order.POST("/create", h.ProviderOrderCreate)
			order.POST("/update", h.ProviderOrderUpdate)
		}

		// 回调推送
		webhook := api.Group("/webhook")
		{
			webhook.POST("/callback", h.WebhookCallback)
		}

		// 账户
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/forgot-password", h.ForgotPassword)
			auth.POST("/reset-password", h.ResetPassword)
			auth.GET("/profile", authed, h.Profile)
		}

		// 站内游戏协议
		game := api.Group("/game")
		{
			game.POST("/login", h.GameLogin)
			game.POST("/create-session", authed, h.CreateSession)
			game.POST("/balance", authed, h.GameBalance)
			game.POST("/debit", authed, h.GameDebit)
			game.POST("/credit", authed, h.GameCredit)
			game.GET("/transactions", authed, h.GameTransactions)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
