package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-exam-api/api/swagger"
	"github.com/noah-isme/sma-exam-api/internal/handler"
	"github.com/noah-isme/sma-exam-api/internal/middleware"
	"github.com/noah-isme/sma-exam-api/internal/repository"
	"github.com/noah-isme/sma-exam-api/internal/service"
	"github.com/noah-isme/sma-exam-api/pkg/cache"
	"github.com/noah-isme/sma-exam-api/pkg/config"
	"github.com/noah-isme/sma-exam-api/pkg/database"
	"github.com/noah-isme/sma-exam-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-exam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-exam-api/pkg/middleware/requestid"
)

// @title SMA Exam API
// @version 0.1.0
// @description Exam scheduling and room/seat allocation engine
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

	metricsSvc := service.NewMetricsService()

	// The distribution cache is an accelerator, not a dependency; the server
	// runs without Redis.
	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, distribution cache disabled", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Allocation.DistributionCacheTTL, logr, cfg.Allocation.CacheEnabled)
	}

	examRepo := repository.NewExamRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	scheduleRepo := repository.NewExamScheduleRepository(db)
	examRoomRepo := repository.NewExamRoomRepository(db)
	seatRepo := repository.NewRoomAssignmentRepository(db)
	studentRepo := repository.NewExamStudentRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	// One locker shared across services so every check-then-commit sequence
	// for the same exam is serialized.
	locker := service.NewScopeLocker()
	conflicts := service.NewConflictChecker(scheduleRepo)

	scheduleSvc := service.NewScheduleService(
		examRepo, subjectRepo, scheduleRepo, examRoomRepo, seatRepo, studentRepo,
		conflicts, db, locker, nil, metricsSvc, logr,
		service.ScheduleConfig{
			StartHour:       cfg.Scheduler.StartHour,
			BreakMinutes:    cfg.Scheduler.BreakMinutes,
			MaxPerDay:       cfg.Scheduler.MaxPerDay,
			DefaultDuration: cfg.Scheduler.DefaultDuration,
		},
	)
	allocationSvc := service.NewAllocationService(
		scheduleRepo, examRoomRepo, seatRepo, studentRepo, roomRepo,
		db, locker, cacheSvc, nil, metricsSvc, logr,
		service.AllocationConfig{MaxPerRoom: cfg.Allocation.MaxPerRoom},
	)
	candidateSvc := service.NewCandidateService(examRepo, studentRepo, db, locker, nil, logr)
	invigilatorSvc := service.NewInvigilatorService(scheduleRepo, examRoomRepo, staffRepo, locker, nil, logr)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	candidateHandler := handler.NewCandidateHandler(candidateSvc)
	invigilatorHandler := handler.NewInvigilatorHandler(invigilatorSvc)
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
	{
		exams := api.Group("/exams/:id")
		{
			exams.POST("/schedules/generate", scheduleHandler.Generate)
			exams.GET("/schedules", scheduleHandler.List)
			exams.POST("/schedules", scheduleHandler.Create)
			exams.POST("/schedules/:scheduleId/invigilators", invigilatorHandler.Assign)
			exams.POST("/candidates", candidateHandler.Register)
			exams.GET("/candidates", candidateHandler.List)
		}

		schedules := api.Group("/schedules")
		{
			schedules.PUT("/:id/time", scheduleHandler.UpdateTime)
			schedules.DELETE("/:id", scheduleHandler.Delete)
			schedules.POST("/:id/rooms/assign", allocationHandler.Assign)
			schedules.POST("/rooms/assign-advanced", allocationHandler.AssignAdvanced)
			schedules.DELETE("/:id/rooms", allocationHandler.Reset)
			schedules.GET("/:id/distribution", allocationHandler.Distribution)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
