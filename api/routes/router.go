package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cigarro-in/cigarro-backend/api/controllers"
	"github.com/cigarro-in/cigarro-backend/api/middleware"
	checkoutsvc "github.com/cigarro-in/cigarro-backend/internal/checkout"
	"github.com/cigarro-in/cigarro-backend/internal/discount"
	"github.com/cigarro-in/cigarro-backend/internal/orders"
	"github.com/cigarro-in/cigarro-backend/internal/referral"
	"github.com/cigarro-in/cigarro-backend/internal/settlement"
	"github.com/cigarro-in/cigarro-backend/internal/wallet"
	"github.com/cigarro-in/cigarro-backend/pkg/config"
	"github.com/cigarro-in/cigarro-backend/pkg/db"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	pkgredis "github.com/cigarro-in/cigarro-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *pkgredis.Client
	Checkout   checkoutsvc.Service
	Discounts  discount.Service
	Referrals  referral.Service
	Wallets    wallet.Service
	Orders     orders.Manager
	Settlement settlement.Engine
	Metrics    http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	r.Get("/ping", controllers.Ping())
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Get("/checkout/{transactionId}/confirmation", controllers.CheckoutConfirmation(deps.Checkout, logg))

		r.Post("/payments/{transactionId}/confirm", controllers.PaymentConfirm(deps.Settlement, logg))

		r.Post("/coupons/validate", controllers.ValidateCoupon(deps.Discounts, logg))

		r.Route("/referral", func(r chi.Router) {
			r.Get("/eligibility", controllers.ReferralEligibility(deps.Referrals, logg))
			r.Post("/attach", controllers.ReferralAttach(deps.Referrals, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(deps.Wallets, logg))
			r.Post("/topup/verify", controllers.WalletTopUpVerify(deps.Wallets, logg))
		})

		r.Get("/orders", controllers.OrdersList(deps.Orders, logg))
	})

	return r
}
