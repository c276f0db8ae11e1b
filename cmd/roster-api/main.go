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

	_ "github.com/abel-mek/school-roster-api/api/swagger"
	"github.com/abel-mek/school-roster-api/internal/handler"
	"github.com/abel-mek/school-roster-api/internal/middleware"
	"github.com/abel-mek/school-roster-api/internal/models"
	"github.com/abel-mek/school-roster-api/internal/realtime"
	"github.com/abel-mek/school-roster-api/internal/repository"
	"github.com/abel-mek/school-roster-api/internal/service"
	"github.com/abel-mek/school-roster-api/pkg/cache"
	"github.com/abel-mek/school-roster-api/pkg/config"
	"github.com/abel-mek/school-roster-api/pkg/database"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
	"github.com/abel-mek/school-roster-api/pkg/jobs"
	"github.com/abel-mek/school-roster-api/pkg/logger"
	corsmiddleware "github.com/abel-mek/school-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/abel-mek/school-roster-api/pkg/middleware/requestid"
	"github.com/abel-mek/school-roster-api/pkg/response"
	"github.com/abel-mek/school-roster-api/pkg/storage"
)

// @title School Roster API
// @version 1.0.0
// @description Roster reconciliation and lesson-plan status service
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	mirrorRepo := repository.NewMirrorRepository(cfg.Mirror, logr, metricsSvc)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	kvRepo := repository.NewKVRepository(redisClient)
	submissionRepo := repository.NewSubmissionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.LessonPlans.StatusCacheTTL, logr, true)
	rosterSvc := service.NewRosterService(mirrorRepo, logr)
	pointerSvc := service.NewWeekPointerService(kvRepo, logr)
	scheduleSvc := service.NewScheduleService(mirrorRepo, rosterSvc, submissionRepo, pointerSvc, cacheSvc, validate, logr, cfg.LessonPlans.StatusCacheTTL)
	notificationSvc := service.NewNotificationService(mirrorRepo, kvRepo, cacheSvc, logr, cfg.Notifications.PostWindow, cfg.Notifications.CacheTTL)

	rosterHandler := handler.NewRosterHandler(rosterSvc)
	lessonPlanHandler := handler.NewLessonPlanHandler(scheduleSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	roster := api.Group("/roster")
	roster.GET("/parents/:parentId/children", middleware.RequireRoles(models.RoleParent), rosterHandler.ParentChildren)
	roster.GET("/children", middleware.RequireRoles(), rosterHandler.AllChildren)
	roster.GET("/teachers/me/courses", middleware.RequireRoles(models.RoleTeacher), rosterHandler.MyCourses)

	lessonPlans := api.Group("/lesson-plans")
	lessonPlans.Use(middleware.RequireRoles(models.RoleTeacher))
	lessonPlans.GET("/status", lessonPlanHandler.Status)
	lessonPlans.POST("/submit-daily", lessonPlanHandler.SubmitDaily)

	notifications := api.Group("/notifications")
	notifications.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleParent, models.RoleStudent))
	notifications.GET("", notificationHandler.Feed)
	notifications.POST("/posts/:id/seen", notificationHandler.MarkSeen)
	notifications.DELETE("/chats/:chatId/unread", notificationHandler.ClearUnread)

	api.GET("/admin/metrics", middleware.RequireRoles(), metricsHandler.Snapshot)

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

		var reportSvc *service.ReportService
		reportQueue = jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
			return reportSvc.Process(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc = service.NewReportService(reportRepo, scheduleSvc, reportQueue, files, signer, validate, logr)
		reportQueue.Start(ctx)

		reportHandler := handler.NewReportHandler(reportSvc)
		reports := api.Group("/reports")
		reports.POST("/lesson-plans", middleware.RequireRoles(models.RoleTeacher), reportHandler.Create)
		reports.GET("/lesson-plans/:id", middleware.RequireRoles(models.RoleTeacher), reportHandler.Status)
		// Downloads authenticate with the signed token instead of a JWT.
		r.GET(cfg.APIPrefix+"/reports/download", reportHandler.Download)
	}

	if cfg.Realtime.Enabled {
		hub := realtime.NewHub(logr, metricsSvc)
		subscriber := realtime.NewSubscriber(cfg.Mirror.BaseURL, cfg.Realtime.ReconnectDelay, logr)
		subscriber.Watch(ctx, func(subtree string) {
			switch subtree {
			case models.SubtreePosts, models.SubtreeChats:
				_ = cacheSvc.Invalidate(ctx, "notif:feed:*")
			case models.SubtreeLessonPlans:
				_ = cacheSvc.Invalidate(ctx, "lp:status:*")
			}
			hub.Broadcast(realtime.RefreshEvent{Kind: "refresh", Subtree: subtree, At: time.Now().UTC()})
		}, models.SubtreePosts, models.SubtreeChats, models.SubtreeLessonPlans)

		api.GET("/ws/notifications", func(c *gin.Context) {
			claimsValue, exists := c.Get(middleware.ContextUserKey)
			if !exists {
				response.Error(c, appErrors.ErrUnauthorized)
				return
			}
			claims := claimsValue.(*models.JWTClaims)
			if err := hub.HandleConnection(c.Writer, c.Request, claims.UserID); err != nil {
				logr.Sugar().Debugw("websocket upgrade failed", "error", err)
			}
		})
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
