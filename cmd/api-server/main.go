package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vitalpoint/consult-api/api/swagger"
	"github.com/vitalpoint/consult-api/internal/handler"
	"github.com/vitalpoint/consult-api/internal/middleware"
	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/repository"
	"github.com/vitalpoint/consult-api/internal/service"
	"github.com/vitalpoint/consult-api/pkg/cache"
	"github.com/vitalpoint/consult-api/pkg/config"
	"github.com/vitalpoint/consult-api/pkg/database"
	"github.com/vitalpoint/consult-api/pkg/logger"
	corsmiddleware "github.com/vitalpoint/consult-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vitalpoint/consult-api/pkg/middleware/requestid"
)

// @title VitalPoint Consultation API
// @version 1.0.0
// @description Consultation scheduling service: doctor availability, slot listing and booking lifecycle
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if cfg.Scheduling.SlotCacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, slot caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	doctorSvc := service.NewDoctorService(doctorRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, doctorRepo, cacheRepo, validate, logr)
	slotSvc := service.NewSlotService(doctorRepo, availabilityRepo, consultationRepo, cacheRepo, cfg.Scheduling.SlotCacheTTL, logr)
	consultationSvc := service.NewConsultationService(consultationRepo, doctorRepo, availabilityRepo, cacheRepo, validate, logr)
	exportSvc := service.NewExportService(consultationSvc, doctorRepo, nil, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	doctorHandler := handler.NewDoctorHandler(doctorSvc, availabilitySvc, slotSvc)
	consultationHandler := handler.NewConsultationHandler(consultationSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	doctors := api.Group("/doctors", middleware.JWT(authSvc))
	{
		doctors.GET("", doctorHandler.List)
		doctors.GET("/:id", doctorHandler.Get)
		doctors.GET("/:id/availability", doctorHandler.GetAvailability)
		doctors.GET("/:id/slots", doctorHandler.ListSlots)

		doctors.POST("",
			middleware.RequireRoles(models.RoleAdmin),
			doctorHandler.Create)
		doctors.PATCH("/:id",
			middleware.RequireRoles(models.RoleAdmin),
			doctorHandler.Update)
		doctors.DELETE("/:id",
			middleware.RequireRoles(models.RoleAdmin),
			doctorHandler.Deactivate)
		doctors.PUT("/:id/availability",
			middleware.RequireRoles(models.RoleAdmin, models.RoleDoctor),
			middleware.Audit(userRepo, models.AuditActionAvailabilityChange, "availability"),
			doctorHandler.SetAvailability)
	}

	consultations := api.Group("/consultations", middleware.JWT(authSvc))
	{
		consultations.GET("", consultationHandler.List)
		consultations.GET("/:id", consultationHandler.Get)
		consultations.GET("/:id/summary.pdf", consultationHandler.SummaryPDF)

		consultations.POST("",
			middleware.RequireRoles(models.RolePatient, models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionConsultationBook, "consultation"),
			consultationHandler.Book)
		consultations.POST("/:id/reschedule",
			middleware.Audit(userRepo, models.AuditActionConsultationChange, "consultation"),
			consultationHandler.Reschedule)
		consultations.POST("/:id/cancel",
			middleware.Audit(userRepo, models.AuditActionConsultationChange, "consultation"),
			consultationHandler.Cancel)
		consultations.PATCH("/:id",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionConsultationChange, "consultation"),
			consultationHandler.AdminUpdate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
