package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "fleetbilling/api/swagger" // swagger docs
	"fleetbilling/internal/config"
	"fleetbilling/internal/database"
	"fleetbilling/internal/handler"
	"fleetbilling/internal/logger"
	"fleetbilling/internal/middleware"
	"fleetbilling/internal/repository"
	"fleetbilling/internal/service"
	"fleetbilling/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Fleet Billing API
// @version         1.0
// @description     Uninvoiced cargo lookup and sales invoice generation for fleet operations.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "", "path to config file (default ./configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(config.LogConfig{}).Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Info("Connected to PostgreSQL successfully.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, log, cfg.Migration); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Set up WebSocket Hub
	wsHub, err := websocket.NewHub(cfg.Server.NodeID, log.WithField("component", "ws"))
	if err != nil {
		log.Fatalf("WebSocket hub: %v", err)
	}
	go wsHub.Run(ctx)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	schemaRepo := repository.NewSchemaRepository(db)
	cargoRepo := repository.NewCargoRepository(db)
	manifestRepo := repository.NewManifestRepository(db)
	invoiceRepo := repository.NewSalesInvoiceRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	middleware.Init(cfg.JWT.Secret, roleRepo)

	// Services
	authService := service.NewAuthService(userRepo, roleRepo, txManager, cfg.JWT, log)
	if err := authService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Admin); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	auditService := service.NewAuditService(auditRepo)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, log.WithField("component", "users"))
	statisticsService := service.NewStatisticsService(statsRepo)
	taxRuleService := service.NewTaxRuleService(taxRuleRepo, auditRepo, txManager, log.WithField("component", "tax"))
	cargoService := service.NewCargoService(cargoRepo, manifestRepo, auditRepo, txManager, log.WithField("component", "cargo"))

	hooks := service.NewSalesInvoiceHooks()
	hooks.Register(service.OnCancel, cargoService.OnSalesInvoiceCancel)

	descriptions := service.NewDescriptionBuilder(manifestRepo, log.WithField("component", "description"))
	invoiceService := service.NewSalesInvoiceService(
		invoiceRepo, cargoRepo, taxRuleRepo, schemaRepo, auditRepo, txManager,
		descriptions, hooks, wsHub, cfg.Billing, log.WithField("component", "sales_invoice"),
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.JWT.ExpireHours, cfg.Server.Mode == gin.ReleaseMode)
	cargoHandler := handler.NewCargoHandler(cargoService)
	invoiceHandler := handler.NewSalesInvoiceHandler(invoiceService)
	auditHandler := handler.NewAuditHandler(auditService)
	taxRuleHandler := handler.NewTaxRuleHandler(taxRuleService)
	userHandler := handler.NewUserHandler(userService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	authHandler.RegisterRoutes(router.Group(""))
	cargoHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	taxRuleHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
