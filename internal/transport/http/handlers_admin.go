package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/httputil"
	request "salegate/pkg/platform/middleware/request"
)

func (h *Handler) urlAccount(r *http.Request) (id.Account, error) {
	account, err := id.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid account")
	}
	return account, nil
}

type accountRequest struct {
	Account string `json:"account"`
}

func (h *Handler) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[accountRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	account, err := id.ParseAccount(req.Account)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
		return
	}
	if err := h.authority.AddAdmin(ctx, account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIsAdmin(w http.ResponseWriter, r *http.Request) {
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	admin, err := h.authority.IsAdmin(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"admin": admin})
}

type whitelistRequest struct {
	Accounts []string `json:"accounts"`
}

func (h *Handler) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[whitelistRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	accounts := make([]id.Account, 0, len(req.Accounts))
	for _, raw := range req.Accounts {
		account, err := id.ParseAccount(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
			return
		}
		accounts = append(accounts, account)
	}
	if err := h.whitelist.AddBatch(ctx, accounts); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.whitelist.Remove(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIsWhitelisted(w http.ResponseWriter, r *http.Request) {
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	listed, err := h.whitelist.IsWhitelisted(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"whitelisted": listed})
}

type setPhaseRequest struct {
	Rate      string    `json:"rate"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	BonusRate uint64    `json:"bonus_rate"`
}

func (h *Handler) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[setPhaseRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	rate, err := id.ParseAmount(req.Rate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid rate"))
		return
	}
	if err := h.phases.SetPhase(ctx, rate, req.StartTime, req.EndTime, req.BonusRate); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type phaseResponse struct {
	Rate      string    `json:"rate"`
	BonusRate uint64    `json:"bonus_rate"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (h *Handler) handleGetPhase(w http.ResponseWriter, r *http.Request) {
	p, err := h.phases.CurrentPhase(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, phaseResponse{
		Rate:      p.Rate.Dec(),
		BonusRate: p.BonusRate,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
	})
}

func (h *Handler) handlePhaseActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.phases.IsActive(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"active": active})
}

type setCapsRequest struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

func (h *Handler) handleSetCaps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[setCapsRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	min, err := id.ParseAmount(req.Min)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid min cap"))
		return
	}
	max, err := id.ParseAmount(req.Max)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid max cap"))
		return
	}
	if err := h.phases.SetIndividualCaps(ctx, min, max); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCaps(w http.ResponseWriter, r *http.Request) {
	caps, err := h.phases.Caps(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setCapsRequest{Min: caps.Min.Dec(), Max: caps.Max.Dec()})
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) handleSetTotalSaleCap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[amountRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	capAmount, err := id.ParseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid cap"))
		return
	}
	if err := h.phases.SetTotalSaleCap(ctx, capAmount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetRaised(w http.ResponseWriter, r *http.Request) {
	raised, err := h.phases.Raised(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	total, err := h.phases.TotalSaleCap(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"raised":         raised.Dec(),
		"total_sale_cap": total.Dec(),
	})
}

type walletRequest struct {
	Wallet string `json:"wallet"`
}

func (h *Handler) handleSetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[walletRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	wallet, err := id.ParseAccount(req.Wallet)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid wallet"))
		return
	}
	if err := h.treasury.SetWallet(ctx, wallet); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWithdrawToken(w http.ResponseWriter, r *http.Request) {
	h.handleWithdraw(w, r, h.treasury.WithdrawToken)
}

func (h *Handler) handleWithdrawEther(w http.ResponseWriter, r *http.Request) {
	h.handleWithdraw(w, r, h.treasury.WithdrawEther)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request, withdraw func(ctx context.Context, amount id.Amount) error) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[amountRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	amount, err := id.ParseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid amount"))
		return
	}
	if err := withdraw(ctx, amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
