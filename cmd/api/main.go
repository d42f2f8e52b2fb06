package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/schedexpress/schedexpress-api/api/swagger"
	"github.com/schedexpress/schedexpress-api/internal/handler"
	"github.com/schedexpress/schedexpress-api/internal/middleware"
	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/internal/repository"
	"github.com/schedexpress/schedexpress-api/internal/service"
	"github.com/schedexpress/schedexpress-api/pkg/cache"
	"github.com/schedexpress/schedexpress-api/pkg/config"
	"github.com/schedexpress/schedexpress-api/pkg/database"
	"github.com/schedexpress/schedexpress-api/pkg/jobs"
	"github.com/schedexpress/schedexpress-api/pkg/logger"
	corsmiddleware "github.com/schedexpress/schedexpress-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schedexpress/schedexpress-api/pkg/middleware/requestid"
)

// @title SchedExpress API
// @version 1.0.0
// @description Student course scheduling and change request workflow
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, settings cache disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	courseRuleRepo := repository.NewCourseRuleRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	validate := validator.New()

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	settingsDefaults := models.Settings{
		SchoolName:     "SchedExpress High School",
		AcademicYear:   fmt.Sprintf("%d-%d", time.Now().Year(), time.Now().Year()+1),
		Semester:       "Fall",
		MaxCourseLoad:  cfg.Scheduling.DefaultMaxCourseLoad,
		AllowConflicts: cfg.Scheduling.DefaultAllowConflict,
	}
	settingsService := service.NewSettingsService(settingsRepo, cacheRepo, settingsDefaults, cfg.Scheduling.SettingsCacheTTL, logr)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)

	studentService := service.NewStudentService(studentRepo, logr)
	courseService := service.NewCourseService(courseRepo, logr)
	ruleService := service.NewRuleService(ruleRepo, logr)
	courseRuleService := service.NewCourseRuleService(courseRuleRepo, courseRepo, logr)
	conflictService := service.NewConflictService(conflictRepo, scheduleRepo, courseRepo, courseRuleRepo, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, studentRepo, settingsService, cfg.Scheduling.TxRetries, logr)
	changeRequestService := service.NewChangeRequestService(changeRequestRepo, conflictService, studentRepo, settingsService, notificationService, cfg.Scheduling.TxRetries, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(ctx)
	defer notificationService.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	courseHandler := handler.NewCourseHandler(courseService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestService)
	conflictHandler := handler.NewConflictHandler(conflictService)
	ruleHandler := handler.NewRuleHandler(ruleService)
	courseRuleHandler := handler.NewCourseRuleHandler(courseRuleService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/courses", courseHandler.List)
		authed.GET("/courses/:id", courseHandler.Get)
		authed.GET("/courses/:id/rules", courseRuleHandler.ListForCourse)

		authed.GET("/students/:id", studentHandler.Get)
		authed.GET("/students/:id/schedule", scheduleHandler.GetByStudent)
		authed.GET("/schedules/:id", scheduleHandler.Get)
		authed.GET("/schedules/:id/export", scheduleHandler.Export)

		authed.POST("/change-requests", changeRequestHandler.Create)
		authed.GET("/change-requests", changeRequestHandler.List)
		authed.GET("/change-requests/:id", changeRequestHandler.Get)
		authed.GET("/change-requests/:id/conflicts", conflictHandler.ListForRequest)

		authed.GET("/settings", settingsHandler.Get)

		authed.GET("/notifications", notificationHandler.List)
		authed.PATCH("/notifications/read-all", notificationHandler.MarkAllRead)
		authed.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	}

	staff := api.Group("")
	staff.Use(middleware.JWT(authService), middleware.Staff())
	{
		staff.GET("/students", studentHandler.List)

		staff.POST("/courses", courseHandler.Create)
		staff.PATCH("/courses/:id", courseHandler.Update)
		staff.DELETE("/courses/:id", courseHandler.Delete)

		staff.GET("/schedules", scheduleHandler.List)
		staff.POST("/schedules", scheduleHandler.Create)
		staff.PATCH("/schedules/:id", scheduleHandler.Update)
		staff.DELETE("/schedules/:id", scheduleHandler.Delete)

		staff.GET("/change-requests/pending", changeRequestHandler.Pending)
		staff.PATCH("/change-requests/:id/review", changeRequestHandler.Review)
		staff.DELETE("/change-requests/:id", changeRequestHandler.Delete)

		staff.GET("/conflicts", conflictHandler.List)
		staff.PATCH("/conflicts/:id/resolve", conflictHandler.Resolve)

		staff.GET("/rules", ruleHandler.List)
		staff.GET("/rules/:id", ruleHandler.Get)
		staff.POST("/rules", ruleHandler.Create)
		staff.PATCH("/rules/:id", ruleHandler.Update)
		staff.DELETE("/rules/:id", ruleHandler.Delete)

		staff.GET("/course-rules", courseRuleHandler.List)
		staff.POST("/course-rules", courseRuleHandler.Create)
		staff.PATCH("/course-rules/:id", courseRuleHandler.Update)
		staff.DELETE("/course-rules/:id", courseRuleHandler.Delete)

		staff.PATCH("/settings", settingsHandler.Update)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
	sugar.Infow("server stopped")
}
