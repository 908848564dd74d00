package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"salegate/internal/ledger"
	"salegate/internal/vesting"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/httputil"
	request "salegate/pkg/platform/middleware/request"
)

type lockEntry struct {
	Account  string    `json:"account"`
	Reason   string    `json:"reason"`
	Amount   string    `json:"amount"`
	Validity time.Time `json:"validity"`
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[struct {
		Locks []lockEntry `json:"locks"`
	}](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	reqs := make([]ledger.LockRequest, 0, len(req.Locks))
	for _, entry := range req.Locks {
		account, err := id.ParseAccount(entry.Account)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
			return
		}
		amount, err := id.ParseAmount(entry.Amount)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid amount"))
			return
		}
		reqs = append(reqs, ledger.LockRequest{
			Account:  account,
			Reason:   entry.Reason,
			Amount:   amount,
			Validity: entry.Validity,
		})
	}
	if err := h.locks.Lock(ctx, reqs); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lockKeyRequest struct {
	Account  string    `json:"account"`
	Reason   string    `json:"reason"`
	Amount   string    `json:"amount,omitempty"`
	Validity time.Time `json:"validity,omitzero"`
}

func (h *Handler) handleIncreaseLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[lockKeyRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	account, err := id.ParseAccount(req.Account)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
		return
	}
	amount, err := id.ParseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid amount"))
		return
	}
	if err := h.locks.IncreaseLockAmount(ctx, account, req.Reason, amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdjustLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[lockKeyRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	account, err := id.ParseAccount(req.Account)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
		return
	}
	if err := h.locks.AdjustLockPeriod(ctx, account, req.Reason, req.Validity); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTokensLocked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reason := chi.URLParam(r, "reason")

	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid timestamp"))
			return
		}
		amount, err := h.locks.TokensLockedAtTime(ctx, account, reason, at)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"amount": amount.Dec()})
		return
	}

	amount, err := h.locks.TokensLocked(ctx, account, reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"amount": amount.Dec()})
}

func (h *Handler) handleLockDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	details, err := h.locks.Details(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	total, err := h.locks.TotalLockedFor(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	type detailRow struct {
		Reason   string    `json:"reason"`
		Amount   string    `json:"amount"`
		Validity time.Time `json:"validity"`
		Claimed  bool      `json:"claimed"`
	}
	rows := make([]detailRow, 0, len(details))
	for _, d := range details {
		rows = append(rows, detailRow{
			Reason:   d.Reason,
			Amount:   d.Amount.Dec(),
			Validity: d.Validity,
			Claimed:  d.Claimed,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"locks": rows,
		"total": total.Dec(),
	})
}

func (h *Handler) handleUnlockable(w http.ResponseWriter, r *http.Request) {
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := h.locks.UnlockableTokens(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"amount": amount.Dec()})
}

func (h *Handler) handleTotalLocked(w http.ResponseWriter, r *http.Request) {
	total, err := h.locks.TotalLocked(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"total": total.Dec()})
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	released, err := h.locks.Unlock(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"released": released.Dec()})
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[struct {
		Accounts []string `json:"accounts"`
	}](w, r, h.logger, request.GetRequestID(ctx))
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
	if err := h.vesting.ReleaseTokens(ctx, accounts); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleVest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[struct {
		Grants []struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
		} `json:"grants"`
	}](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	grants := make([]vesting.Grant, 0, len(req.Grants))
	for _, g := range req.Grants {
		account, err := id.ParseAccount(g.Account)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
			return
		}
		amount, err := id.ParseAmount(g.Amount)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid amount"))
			return
		}
		grants = append(grants, vesting.Grant{Account: account, Amount: amount})
	}
	if err := h.vesting.VestDedicatedTokens(ctx, grants); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[struct {
		Deliveries []struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
			Bonus   string `json:"bonus"`
		} `json:"deliveries"`
		ReleaseTime time.Time `json:"release_time"`
	}](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	deliveries := make([]vesting.Delivery, 0, len(req.Deliveries))
	for _, d := range req.Deliveries {
		account, err := id.ParseAccount(d.Account)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account"))
			return
		}
		amount, err := id.ParseAmount(d.Amount)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid amount"))
			return
		}
		bonus := id.Zero()
		if d.Bonus != "" {
			if bonus, err = id.ParseAmount(d.Bonus); err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid bonus"))
				return
			}
		}
		deliveries = append(deliveries, vesting.Delivery{Account: account, Amount: amount, Bonus: bonus})
	}
	if err := h.vesting.DeliverPurchasedTokensManually(ctx, deliveries, req.ReleaseTime); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	account, err := h.urlAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.audit.List(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
