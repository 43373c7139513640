package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wealthdesk/internal/analytics"
	"wealthdesk/internal/caching"
	"wealthdesk/internal/config"
	"wealthdesk/internal/events"
	"wealthdesk/internal/handlers"
	"wealthdesk/internal/jobs"
	"wealthdesk/internal/jobs/background"
	"wealthdesk/internal/middleware"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
	"wealthdesk/internal/repositories"
	"wealthdesk/internal/services"
	"wealthdesk/pkg/database"
)

const version = "1.0.0"

const auditRetention = 90 * 24 * time.Hour

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Server.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// A cycle in the catalog is a deployment error; refuse to start.
	reg, err := registry.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("load module catalog", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	archiveStorage, err := services.NewMinioArchiveStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		logger.Fatal("init archive storage", zap.Error(err))
	}

	// Repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	entitlementRepo := repositories.NewEntitlementRepo(pool)
	taskRepo := repositories.NewTaskRepo(pool)
	workflowRepo := repositories.NewWorkflowRepo(pool, taskRepo)

	cacheSvc := caching.NewRedisCacheService(redisClient)
	notifier := events.NewRedisNotifier(redisClient, cfg.Events.Stream, cfg.Events.BufferSize, logger)
	defer notifier.Close()

	// Services
	entitlementSvc := services.NewEntitlementService(entitlementRepo, reg, cacheSvc, notifier, logger)
	authzSvc := services.NewAuthzService(entitlementSvc, reg)
	workflowSvc := services.NewWorkflowService(workflowRepo, taskRepo, reg, authzSvc, entitlementSvc, notifier, logger)
	taskSvc := services.NewTaskService(taskRepo, userRepo, authzSvc, workflowSvc, notifier, logger)
	tenantSvc := services.NewTenantService(tenantRepo)
	userSvc := services.NewUserService(userRepo)
	analyticsSvc := analytics.NewAnalyticsService(taskRepo, workflowRepo, cacheSvc, logger)

	archiver := jobs.NewAuditArchiver(entitlementRepo, archiveStorage, cfg.Minio.Bucket, auditRetention, logger)
	scheduler, err := background.NewJobScheduler(workflowSvc, workflowRepo, archiver, logger)
	if err != nil {
		logger.Fatal("init job scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Handlers
	entitlementHandlers := handlers.NewEntitlementHandlers(entitlementSvc, reg)
	taskHandlers := handlers.NewTaskHandlers(taskSvc)
	workflowHandlers := handlers.NewWorkflowHandlers(workflowSvc)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc)
	userHandlers := handlers.NewUserHandlers(userSvc)
	statsHandlers := handlers.NewStatsHandlers(analyticsSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, version)

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.Health)
	e.GET("/health/ready", healthHandlers.Ready)

	versionMiddleware := middleware.NewVersionMiddleware()
	v1 := versionMiddleware.VersionRoute(e, "v1")
	v1.Use(middleware.JWTMiddleware(cfg.Server.JWTSecret))

	// Module catalog and per-tenant entitlements. Tenant admins manage
	// their own tenant; super-admins may target any tenant.
	v1.GET("/modules", entitlementHandlers.ListModules)
	v1.GET("/tenants/:tenant_id/modules", entitlementHandlers.ListEnabled)
	v1.POST("/tenants/:tenant_id/modules/:module_code/enable", entitlementHandlers.Enable)
	v1.POST("/tenants/:tenant_id/modules/:module_code/disable", entitlementHandlers.Disable)
	v1.GET("/tenants/:tenant_id/modules/history", entitlementHandlers.History)

	// Tasks
	v1.POST("/tasks", taskHandlers.CreateTask)
	v1.GET("/tasks", taskHandlers.ListTasks)
	v1.GET("/tasks/:id", taskHandlers.GetTask)
	v1.POST("/tasks/:id/assign", taskHandlers.AssignTask)
	v1.POST("/tasks/:id/unassign", taskHandlers.UnassignTask)
	v1.POST("/tasks/:id/start", taskHandlers.StartTask)
	v1.POST("/tasks/:id/block", taskHandlers.BlockTask)
	v1.POST("/tasks/:id/unblock", taskHandlers.UnblockTask)
	v1.POST("/tasks/:id/complete", taskHandlers.CompleteTask)
	v1.POST("/tasks/:id/cancel", taskHandlers.CancelTask)

	// Workflows
	v1.POST("/workflows", workflowHandlers.InstantiateWorkflow)
	v1.GET("/workflows", workflowHandlers.ListWorkflows)
	v1.GET("/workflows/:id", workflowHandlers.GetWorkflow)
	v1.GET("/workflows/:id/tasks", workflowHandlers.GetWorkflowTasks)

	// Users
	v1.POST("/users", userHandlers.CreateUser)
	v1.GET("/users", userHandlers.ListUsers)
	v1.GET("/users/:id", userHandlers.GetUser)
	v1.POST("/users/:id/disable", userHandlers.DisableUser)

	// Stats
	v1.GET("/stats", statsHandlers.TenantStats)

	// Tenant administration is reserved for platform operators.
	admin := v1.Group("/tenants", middleware.RequireRole(models.RoleSuperAdmin))
	admin.GET("", tenantHandlers.ListTenants)
	admin.POST("", tenantHandlers.CreateTenant)
	admin.GET("/:tenant_id", tenantHandlers.GetTenant)
	admin.POST("/:tenant_id/suspend", tenantHandlers.SuspendTenant)
	admin.POST("/:tenant_id/reactivate", tenantHandlers.ReactivateTenant)

	logger.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
	e.Logger.Fatal(e.Start(cfg.Server.Addr))
}
