// Package httptransport is the thin HTTP layer over the sale engine. It
// decodes requests, resolves the caller from the bearer token and delegates
// to the domain services; all role and invariant checks live below.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salegate/internal/authority"
	"salegate/internal/ledger"
	"salegate/internal/phase"
	"salegate/internal/sale"
	"salegate/internal/treasury"
	"salegate/internal/vesting"
	"salegate/internal/whitelist"
	"salegate/pkg/platform/audit"
	authmw "salegate/pkg/platform/middleware/auth"
	request "salegate/pkg/platform/middleware/request"
	"salegate/pkg/platform/middleware/requesttime"
)

// Handler holds the domain services the routes delegate to.
type Handler struct {
	logger    *slog.Logger
	authority *authority.Service
	whitelist *whitelist.Service
	phases    *phase.Controller
	engine    *sale.Engine
	locks     *ledger.Service
	vesting   *vesting.Releaser
	treasury  *treasury.Service
	audit     *audit.Publisher
	validator authmw.TokenValidator
}

func NewHandler(
	logger *slog.Logger,
	authoritySvc *authority.Service,
	whitelistSvc *whitelist.Service,
	phases *phase.Controller,
	engine *sale.Engine,
	locks *ledger.Service,
	vestingSvc *vesting.Releaser,
	treasurySvc *treasury.Service,
	auditPub *audit.Publisher,
	validator authmw.TokenValidator,
) *Handler {
	return &Handler{
		logger:    logger,
		authority: authoritySvc,
		whitelist: whitelistSvc,
		phases:    phases,
		engine:    engine,
		locks:     locks,
		vesting:   vestingSvc,
		treasury:  treasurySvc,
		audit:     auditPub,
		validator: validator,
	}
}

// NewRouter wires all endpoints. Reads are open; every mutating route runs
// behind bearer authentication so the domain services can see the caller.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// public reads
	r.Get("/phase", h.handleGetPhase)
	r.Get("/phase/active", h.handlePhaseActive)
	r.Get("/caps", h.handleGetCaps)
	r.Get("/sale/raised", h.handleGetRaised)
	r.Get("/admins/{account}", h.handleIsAdmin)
	r.Get("/whitelist/{account}", h.handleIsWhitelisted)
	r.Get("/locks/total", h.handleTotalLocked)
	r.Get("/locks/{account}", h.handleLockDetails)
	r.Get("/locks/{account}/unlockable", h.handleUnlockable)
	r.Get("/locks/{account}/{reason}", h.handleTokensLocked)
	r.Get("/audit/{account}", h.handleAuditTrail)

	// authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.validator, h.logger))

		r.Post("/sale/buy", h.handleBuy)
		r.Post("/locks/{account}/unlock", h.handleUnlock)
		r.Post("/locks/release", h.handleRelease)

		r.Post("/admin/admins", h.handleAddAdmin)
		r.Post("/admin/whitelist", h.handleWhitelistAdd)
		r.Delete("/admin/whitelist/{account}", h.handleWhitelistRemove)
		r.Post("/admin/phase", h.handleSetPhase)
		r.Post("/admin/caps", h.handleSetCaps)
		r.Post("/admin/total-sale-cap", h.handleSetTotalSaleCap)
		r.Post("/admin/locks", h.handleLock)
		r.Post("/admin/locks/increase", h.handleIncreaseLock)
		r.Post("/admin/locks/adjust", h.handleAdjustLock)
		r.Post("/admin/vesting", h.handleVest)
		r.Post("/admin/deliveries", h.handleDeliver)
		r.Post("/admin/wallet", h.handleSetWallet)
		r.Post("/admin/withdraw/token", h.handleWithdrawToken)
		r.Post("/admin/withdraw/ether", h.handleWithdrawEther)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
