package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brickline/estimator-backend/api/controllers"
	"github.com/brickline/estimator-backend/api/middleware"
	"github.com/brickline/estimator-backend/internal/catalog"
	"github.com/brickline/estimator-backend/internal/estimate"
	"github.com/brickline/estimator-backend/internal/takeoff"
	"github.com/brickline/estimator-backend/pkg/config"
	"github.com/brickline/estimator-backend/pkg/db"
	"github.com/brickline/estimator-backend/pkg/logger"
	pkgredis "github.com/brickline/estimator-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	registry *prometheus.Registry,
	takeoffService takeoff.Service,
	estimateService estimate.Service,
	catalogService catalog.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	var redisPinger pkgredis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		var store pkgredis.IdempotencyStore
		if redisClient != nil {
			store = redisClient
		}
		r.Use(middleware.Idempotency(store, cfg.Sync.IdempotencyTTL, logg))

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Route("/takeoff", func(r chi.Router) {
				r.Get("/", controllers.TakeoffList(takeoffService, logg))
				r.Post("/extraction", controllers.TakeoffIngest(takeoffService, logg))
				r.Post("/items/{itemID}/norm", controllers.TakeoffAssignNorm(takeoffService, logg))
			})
			r.Route("/estimate", func(r chi.Router) {
				r.Get("/", controllers.EstimateList(estimateService, logg))
				r.Post("/resolve", controllers.EstimateResolve(estimateService, logg))
				r.Post("/sync-budget", controllers.EstimateSyncBudget(estimateService, logg))
				r.Post("/lines", controllers.EstimateCreateLine(estimateService, logg))
			})
		})

		r.Patch("/estimate/lines/{lineID}/price", controllers.EstimateUpdatePrice(estimateService, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/norms", controllers.CatalogNorms(catalogService, logg))
			r.Get("/norms/{code}", controllers.CatalogNormByCode(catalogService, logg))
			r.Get("/resources", controllers.CatalogResources(catalogService, logg))
			r.Post("/resources", controllers.CatalogCreateResource(catalogService, logg))
		})
	})

	return r
}
