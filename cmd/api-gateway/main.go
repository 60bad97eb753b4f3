package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/college-timetable-api/api/swagger"
	"github.com/noah-isme/college-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/college-timetable-api/internal/middleware"
	"github.com/noah-isme/college-timetable-api/internal/repository"
	"github.com/noah-isme/college-timetable-api/internal/service"
	"github.com/noah-isme/college-timetable-api/pkg/cache"
	"github.com/noah-isme/college-timetable-api/pkg/config"
	"github.com/noah-isme/college-timetable-api/pkg/database"
	"github.com/noah-isme/college-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-timetable-api/pkg/middleware/requestid"
)

// @title College Timetable API
// @version 1.0.0
// @description Multi-tenant college administration and weekly timetable generation service
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, timetable views served uncached", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	collegeRepo := repository.NewCollegeRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	authSvc := service.NewAuthService(collegeRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	branchSvc := service.NewBranchService(branchRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, subjectRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)

	timetableSvc := newTimetableService(cfg, timetableRepo, branchRepo, subjectRepo, teacherRepo, cacheRepo, metricsSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	branchHandler := handler.NewBranchHandler(branchSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, cfg.Timetable.ExportsEnabled)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(internalmiddleware.Metrics(metricsSvc))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/profile", internalmiddleware.JWT(authSvc), authHandler.Profile)

	protected := api.Group("")
	protected.Use(internalmiddleware.JWT(authSvc))

	branches := protected.Group("/branches")
	branches.GET("", branchHandler.List)
	branches.POST("", branchHandler.Create)
	branches.GET("/:id", branchHandler.Get)
	branches.PUT("/:id", branchHandler.Update)
	branches.DELETE("/:id", branchHandler.Delete)

	teachers := protected.Group("/teachers")
	teachers.GET("", teacherHandler.List)
	teachers.POST("", teacherHandler.Create)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.PUT("/:id", teacherHandler.Update)
	teachers.DELETE("/:id", teacherHandler.Delete)

	subjects := protected.Group("/subjects")
	subjects.GET("", subjectHandler.List)
	subjects.POST("", subjectHandler.Create)
	subjects.GET("/:id", subjectHandler.Get)
	subjects.PUT("/:id", subjectHandler.Update)
	subjects.DELETE("/:id", subjectHandler.Delete)

	timetables := protected.Group("/timetables")
	timetables.POST("/generate", timetableHandler.Generate)
	timetables.GET("/branch/:branchId/semester/:semester", timetableHandler.GetByKey)
	timetables.GET("/:id", timetableHandler.Get)
	timetables.PUT("/:id", timetableHandler.Update)
	timetables.DELETE("/:id", timetableHandler.Delete)
	timetables.GET("/:id/export", timetableHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newTimetableService(
	cfg *config.Config,
	timetables *repository.TimetableRepository,
	branches *repository.BranchRepository,
	subjects *repository.SubjectRepository,
	teachers *repository.TeacherRepository,
	cacheRepo *repository.CacheRepository,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) *service.TimetableService {
	// A nil *CacheRepository must stay a nil interface inside the service.
	var timetableCache service.TimetableCache
	if cacheRepo != nil {
		timetableCache = cacheRepo
	}
	var observer service.GenerationObserver
	if metrics != nil {
		observer = metrics
	}
	return service.NewTimetableService(
		timetables,
		branches,
		subjects,
		teachers,
		timetableCache,
		cfg.Timetable.CacheTTL,
		observer,
		validate,
		logr,
	)
}
