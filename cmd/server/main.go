package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"DocTrack/internal/conf"
	"DocTrack/internal/data"
	"DocTrack/internal/handler"
	"DocTrack/internal/middleware"
	"DocTrack/internal/repository"
	"DocTrack/internal/scheduler"
	"DocTrack/internal/service"
	"DocTrack/internal/utils"
	"DocTrack/pkg/logger"
)

func main() {
	// 1. 加载配置
	cfg := conf.LoadConfig()

	// 2. 初始化日志
	zlog, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// 3. JWT 签名密钥
	if err := utils.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
		zlog.Fatal("JWT 初始化失败", zap.Error(err))
	}

	// 4. 初始化数据层 (Postgres, Redis, MinIO, 可选 Qdrant)
	d, cleanup, err := data.NewData(cfg, zlog)
	if err != nil {
		zlog.Fatal("数据层初始化失败", zap.Error(err))
	}
	defer cleanup()

	userRepo := repository.NewUserRepository(d.DB)

	// 5. 初始化服务层
	blobStore := service.NewMinioStore(d.Minio, d.Bucket)
	notify := service.NewNotifier(&cfg.Notify, zlog)
	embedder := service.NewEmbeddingProvider(&cfg.KB, zlog)

	var vectorIndex service.VectorIndex
	if cfg.KB.VectorBackend == "qdrant" && d.Qdrant != nil {
		vectorIndex = service.NewQdrantIndex(d.Qdrant, cfg.Data.QdrantCollection)
	} else {
		vectorIndex = service.NewStoreIndex(d.DB)
	}

	authService := service.NewAuthService(userRepo, &cfg.Auth, zlog)
	employeeService := service.NewEmployeeService(d.DB, userRepo, &cfg.Auth, notify, zlog)
	documentService := service.NewDocumentService(d.DB, blobStore, userRepo, notify, zlog)
	complianceService := service.NewComplianceService(d.DB, &cfg.Compliance, zlog)
	knowledgeService := service.NewKnowledgeService(d.DB, &cfg.KB, embedder, vectorIndex, zlog)
	dashboardService := service.NewDashboardService(d.DB, userRepo, zlog)
	sweepService := service.NewSweepService(d.DB, d.Redis, &cfg.Compliance, notify, zlog)

	// 6. 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService)
	complianceHandler := handler.NewComplianceHandler(complianceService)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	employeeHandler := handler.NewEmployeeHandler(employeeService)

	// 7. 启动定时任务（逾期扫描 + 提醒派发）
	sched := scheduler.New(sweepService, cfg.Compliance.SweepCron, zlog)
	if err := sched.Start(); err != nil {
		zlog.Fatal("定时任务启动失败", zap.Error(err))
	}
	defer sched.Stop()

	// 8. 初始化 Gin Web Server
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// 🔥 关键：配置 CORS 跨域
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // 开发环境允许所有，生产环境建议指定前端域名
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "X-Trace-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Trace())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 9. 注册路由
	api := r.Group("/api")
	{
		// 认证模块
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// 受保护的路由
		protected := api.Group("/")
		protected.Use(middleware.Auth(userRepo))
		{
			// 个人信息
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/profile", authHandler.Profile)
			protected.PUT("/auth/profile", authHandler.UpdateProfile)
			protected.PUT("/auth/change-password", authHandler.ChangePassword)

			// 文档模块
			docs := protected.Group("/documents")
			{
				docs.POST("", documentHandler.Upload)
				docs.GET("", documentHandler.List)
				docs.GET("/shared", middleware.RequireAdmin(), documentHandler.Shared)
				docs.GET("/:id", documentHandler.Get)
				docs.GET("/:id/versions", documentHandler.Versions)
				docs.POST("/:id/versions", documentHandler.AddVersion)
				docs.PATCH("/:id/status", middleware.RequireAdmin(), documentHandler.UpdateStatus)
				docs.DELETE("/:id", documentHandler.Delete)
			}

			// 合规模块
			compliance := protected.Group("/compliance")
			{
				compliance.POST("", complianceHandler.Create)
				compliance.GET("", complianceHandler.List)
				compliance.GET("/overdue", complianceHandler.Overdue)
				compliance.GET("/due-soon", complianceHandler.DueSoon)
				compliance.GET("/stats", complianceHandler.Stats)
				compliance.GET("/:id", complianceHandler.Get)
				compliance.PATCH("/:id/status", complianceHandler.UpdateStatus)
				compliance.PUT("/:id", complianceHandler.Update)
				compliance.DELETE("/:id", complianceHandler.Delete)
			}

			// 知识库模块
			kb := protected.Group("/knowledge-base")
			{
				kb.POST("/index", knowledgeHandler.Index)
				kb.GET("", knowledgeHandler.List)
				kb.GET("/search/semantic", knowledgeHandler.SemanticSearch)
				kb.GET("/search/text", knowledgeHandler.TextSearch)
				kb.GET("/stats", knowledgeHandler.Stats)
				kb.GET("/:id", knowledgeHandler.Get)
				kb.PUT("/:id", knowledgeHandler.Update)
				kb.DELETE("/:id", knowledgeHandler.Delete)
			}

			// 看板模块
			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("/stats", dashboardHandler.Stats)
				dashboard.GET("/department/:department",
					middleware.RequireDepartmentAccess("department"),
					dashboardHandler.DepartmentStats)
			}

			// 员工管理（仅 admin）
			employees := protected.Group("/employees", middleware.RequireAdmin())
			{
				employees.POST("/invite", employeeHandler.Invite)
				employees.GET("/department-employees", employeeHandler.DepartmentEmployees)
				employees.POST("/assign-document/:id", employeeHandler.AssignUsers)
			}
		}
	}

	zlog.Info("🚀 DocTrack 后端已启动", zap.String("port", cfg.App.Port))
	if err := r.Run(":" + cfg.App.Port); err != nil {
		zlog.Fatal("Server 启动失败", zap.Error(err))
	}
}
