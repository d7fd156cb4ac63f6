// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/handler"
	"hr-smart-go/internal/middleware"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/pipeline"
	"hr-smart-go/internal/repository"
	"hr-smart-go/internal/service"
	"hr-smart-go/pkg/database"
	"hr-smart-go/pkg/embedding"
	"hr-smart-go/pkg/es"
	"hr-smart-go/pkg/kafka"
	"hr-smart-go/pkg/llm"
	"hr-smart-go/pkg/log"
	"hr-smart-go/pkg/storage"
	"hr-smart-go/pkg/tika"
	"hr-smart-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化基础设施连接
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Fatalf("es 初始化失败: %v", err)
	}
	kafka.InitProducer(cfg.Kafka)

	// 同步表结构
	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.Document{},
		&model.DocumentChunk{},
		&model.Conversation{},
		&model.ActivityLog{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	orgRepo := repository.NewOrgRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB, database.DB)
	activityRepo := repository.NewActivityRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	vectorStore := es.NewStore(es.ESClient, cfg.Elasticsearch.IndexName)

	userService := service.NewUserService(userRepo, orgRepo, jwtManager)
	adminService := service.NewAdminService(orgRepo, userRepo, conversationRepo, activityRepo)
	documentService := service.NewDocumentService(docRepo, chunkRepo, activityRepo, vectorStore, cfg.MinIO)
	retrievalService := service.NewRetrievalService(embeddingClient, vectorStore, cfg.RAG)
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(retrievalService, llmClient, conversationRepo, activityRepo, cfg.LLM)
	statsService := service.NewStatsService(userRepo, docRepo, chunkRepo, conversationRepo, vectorStore)

	// 6. 初始化文档处理管道 (Processor)
	fetcher := storage.NewBucketFetcher(cfg.MinIO.BucketName)
	processor := pipeline.NewProcessor(
		docRepo,
		chunkRepo,
		fetcher,
		tikaClient,
		embeddingClient,
		vectorStore,
		cfg.RAG,
		cfg.Embedding.Model,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService, conversationService)
	documentHandler := handler.NewDocumentHandler(documentService)
	searchHandler := handler.NewSearchHandler(retrievalService)
	chatHandler := handler.NewChatHandler(chatService, jwtManager)
	adminHandler := handler.NewAdminHandler(adminService)
	statsHandler := handler.NewStatsHandler(statsService)

	// 9. 注册路由
	r.GET("/healthz", statsHandler.Health)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组（公开访问）
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refreshToken", authHandler.RefreshToken)
		}

		// 需要认证的路由
		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			authed.POST("/auth/logout", authHandler.Logout)

			users := authed.Group("/users")
			{
				users.GET("/me", userHandler.GetProfile)
				users.PUT("/me", userHandler.UpdateProfile)
				users.GET("/conversation", userHandler.GetCurrentConversation)
				users.GET("/conversations", userHandler.GetRecentConversations)
				users.POST("/conversation/new", userHandler.StartNewConversation)
			}

			documents := authed.Group("/documents")
			{
				documents.POST("", documentHandler.Upload)
				documents.GET("", documentHandler.List)
				documents.GET("/:id", documentHandler.Get)
				documents.GET("/:id/chunks", documentHandler.GetChunks)
				documents.GET("/:id/download", documentHandler.Download)
				documents.DELETE("/:id", documentHandler.Delete)
				documents.PUT("/:id/visibility", documentHandler.SetVisibility)
				documents.POST("/:id/reprocess", documentHandler.Reprocess)
			}

			authed.POST("/search", searchHandler.Search)
			authed.GET("/chat/websocket-token", chatHandler.GetWebsocketStopToken)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminAuthMiddleware())
		{
			orgs := admin.Group("/orgs")
			{
				orgs.POST("", adminHandler.CreateOrganization)
				orgs.GET("", adminHandler.ListOrganizations)
				orgs.GET("/tree", adminHandler.GetOrganizationTree)
				orgs.PUT("/:orgId", adminHandler.UpdateOrganization)
				orgs.DELETE("/:orgId", adminHandler.DeleteOrganization)
			}

			admin.GET("/users/list", adminHandler.ListUsers)
			admin.PUT("/users/:userId/org", adminHandler.AssignUserOrg)
			admin.PUT("/users/:userId/role", adminHandler.SetUserRole)
			admin.GET("/conversations", adminHandler.ListConversations)
			admin.GET("/activities", adminHandler.ListActivities)
			admin.GET("/stats", statsHandler.GetStats)
		}
	}

	// Chat 路由 (WebSocket)，token 在路径上认证
	r.GET("/chat/:token", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
