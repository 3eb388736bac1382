package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"workitem-system/internal/controllers"
	"workitem-system/internal/integrations/registry"
	"workitem-system/internal/listeners"
	"workitem-system/internal/repositories"
	"workitem-system/internal/services"
	"workitem-system/internal/sla"
	"workitem-system/pkg/config"
	"workitem-system/pkg/eventbus"
	"workitem-system/pkg/middleware"
	"workitem-system/pkg/service"
)

// InitRouter wires repositories, services, listeners and controllers and
// returns the scheduler so main can start its loop.
func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	jwtSvc service.JWTService,
	logger *zap.Logger,
	cfg *config.Config,
) *services.StalenessScheduler {
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	bus := eventbus.New(logger)

	// Repositories.
	workItemRepo := repositories.NewWorkItemRepository(dbConn)
	userRepo := repositories.NewUserRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// Collaborators.
	registryClient := registry.NewClient(cfg.Registry, cacheRepo, logger)
	dispatcher := services.NewLogNotificationDispatcher(logger)
	quota := services.NewLogQuotaAccumulator(logger)
	calc := sla.NewCalculator(cfg.SLA.BucketBoundaries)

	// Services.
	workItemService := services.NewWorkItemService(workItemRepo, registryClient, bus, logger)
	scheduler := services.NewStalenessScheduler(workItemRepo, userRepo, dispatcher, cfg.SLA, cfg.Scheduler, logger)
	dashboardService := services.NewDashboardService(workItemRepo, calc)
	reportService := services.NewReportService(workItemRepo, calc)

	// Side-effect listeners.
	listeners.NewWorkItemListener(dispatcher, quota, userRepo, logger).Register(bus)

	// Controllers.
	workItemController := controllers.NewWorkItemController(workItemService, scheduler, logger)
	dashboardController := controllers.NewDashboardController(dashboardService, logger)
	reportController := controllers.NewReportController(reportService, logger)

	secure := api.Group("", authMW.Auth)
	runWorkItemRouter(secure, workItemController)
	runDashboardRouter(secure, dashboardController)
	runReportRouter(secure, reportController)

	return scheduler
}
