package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborline/payments-core/api/controllers"
	paymentcontrollers "github.com/harborline/payments-core/api/controllers/payments"
	"github.com/harborline/payments-core/api/middleware"
	paymentsvc "github.com/harborline/payments-core/internal/payments"
	"github.com/harborline/payments-core/internal/registry"
	"github.com/harborline/payments-core/pkg/config"
	"github.com/harborline/payments-core/pkg/db"
	"github.com/harborline/payments-core/pkg/logger"
	"github.com/harborline/payments-core/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymentService paymentsvc.Service,
	providerRepo registry.Repository,
	metricsRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payment-collections", func(r chi.Router) {
			r.Post("/", paymentcontrollers.CollectionCreate(paymentService, logg))
			r.Get("/", paymentcontrollers.CollectionList(paymentService, logg))
			r.Get("/{collectionId}", paymentcontrollers.CollectionGet(paymentService, logg))
			r.Patch("/{collectionId}", paymentcontrollers.CollectionUpdate(paymentService, logg))
			r.Delete("/{collectionId}", paymentcontrollers.CollectionDelete(paymentService, logg))
			r.Post("/{collectionId}/complete", paymentcontrollers.CollectionComplete(paymentService, logg))
			r.Post("/{collectionId}/sessions", paymentcontrollers.CollectionSetSessions(paymentService, logg))
			r.Post("/{collectionId}/authorize", paymentcontrollers.CollectionAuthorize(paymentService, logg))
		})

		r.Route("/payment-sessions", func(r chi.Router) {
			r.Get("/{sessionId}", paymentcontrollers.SessionGet(paymentService, logg))
			r.Patch("/{sessionId}", paymentcontrollers.SessionUpdate(paymentService, logg))
			r.Delete("/{sessionId}", paymentcontrollers.SessionDelete(paymentService, logg))
			r.Post("/{sessionId}/refresh", paymentcontrollers.SessionRefresh(paymentService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/capture", paymentcontrollers.PaymentCapture(paymentService, logg))
			r.Post("/refund", paymentcontrollers.PaymentRefund(paymentService, logg))
			r.Post("/cancel", paymentcontrollers.PaymentCancel(paymentService, logg))
			r.Get("/{paymentId}", paymentcontrollers.PaymentGet(paymentService, logg))
			r.Patch("/{paymentId}", paymentcontrollers.PaymentUpdate(paymentService, logg))
		})

		r.Get("/payment-providers", paymentcontrollers.ProviderList(providerRepo, logg))
	})

	return r
}
