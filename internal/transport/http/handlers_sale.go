package httptransport

import (
	"net/http"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/httputil"
	request "salegate/pkg/platform/middleware/request"
	"salegate/pkg/requestcontext"
)

type buyRequest struct {
	// Value is the attached native-currency amount, as a decimal string.
	Value string `json:"value"`
}

type buyResponse struct {
	Tokens string `json:"tokens"`
	Bonus  string `json:"bonus"`
}

// handleBuy is the value-bearing entry point: the authenticated caller is
// the buyer and the attached value drives the purchase.
func (h *Handler) handleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[buyRequest](w, r, h.logger, request.GetRequestID(ctx))
	if !ok {
		return
	}
	value, err := id.ParseAmount(req.Value)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid value"))
		return
	}
	buyer := requestcontext.Caller(ctx)
	receipt, err := h.engine.Buy(ctx, buyer, value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, buyResponse{
		Tokens: receipt.Tokens.Dec(),
		Bonus:  receipt.Bonus.Dec(),
	})
}
