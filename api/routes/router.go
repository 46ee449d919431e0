package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goldenlotto/lottery-backend/api/controllers"
	"github.com/goldenlotto/lottery-backend/api/middleware"
	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/internal/bets"
	"github.com/goldenlotto/lottery-backend/internal/commission"
	"github.com/goldenlotto/lottery-backend/internal/ledger"
	"github.com/goldenlotto/lottery-backend/internal/settlement"
	"github.com/goldenlotto/lottery-backend/internal/transfers"
	"github.com/goldenlotto/lottery-backend/pkg/config"
	"github.com/goldenlotto/lottery-backend/pkg/db"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
	"github.com/goldenlotto/lottery-backend/pkg/metrics"
	pkgredis "github.com/goldenlotto/lottery-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	accountService accounts.Service,
	ledgerService ledger.Service,
	betService bets.Service,
	settlementService settlement.Service,
	transferService transfers.Service,
	commissionService commission.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", controllers.AccountCreate(accountService, logg))
			r.Get("/{accountID}", controllers.AccountDetail(accountService, logg))
			r.Get("/{accountID}/balance", controllers.AccountBalance(accountService, logg))
			r.Get("/{accountID}/transactions", controllers.AccountTransactions(ledgerService, logg))
			r.Get("/{accountID}/bets", controllers.BetList(betService, logg))
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/deposit", controllers.TransferDeposit(transferService, logg))
			r.Post("/withdraw", controllers.TransferWithdraw(transferService, logg))
		})

		r.Route("/bets", func(r chi.Router) {
			r.Post("/", controllers.BetPlace(betService, logg))
			r.Get("/{betID}", controllers.BetDetail(betService, logg))
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/{agentID}/commission", controllers.AgentCommissionSummary(commissionService, logg))
			r.Get("/{agentID}/commission/records", controllers.AgentCommissionRecords(commissionService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/results", func(r chi.Router) {
			r.Post("/", controllers.ResultPublish(settlementService, logg))
			r.Post("/resume", controllers.ResultResume(settlementService, logg))
		})
	})

	return r
}
