package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/itadmit/quickshop3-sub007/internal/platform/httpx"
	"github.com/itadmit/quickshop3-sub007/internal/services"
)

const maxConfirmBodySize = 16 * 1024

// InternalOrderHandlers exposes the post-order confirmation endpoints
// called by the order pipeline, never by storefront clients.
type InternalOrderHandlers struct {
	checkout services.CheckoutConfirmer
}

// NewInternalOrderHandlers constructs the internal order handlers.
func NewInternalOrderHandlers(checkout services.CheckoutConfirmer) *InternalOrderHandlers {
	return &InternalOrderHandlers{checkout: checkout}
}

// Routes wires the internal order endpoints onto the provided router.
func (h *InternalOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders/{orderId}/confirm-discounts", h.confirmDiscounts)
}

type confirmDiscountsRequest struct {
	StoreID     string   `json:"storeId"`
	DiscountIDs []string `json:"discountIds"`
	Code        string   `json:"code,omitempty"`
}

type confirmDiscountsResponse struct {
	Recorded     []string `json:"recorded"`
	LimitReached []string `json:"limitReached"`
}

func (h *InternalOrderHandlers) confirmDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxConfirmBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req confirmDiscountsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.ConfirmOrderDiscounts(ctx, services.ConfirmOrderDiscountsCommand{
		StoreID:     req.StoreID,
		OrderID:     orderID,
		DiscountIDs: req.DiscountIDs,
		Code:        req.Code,
	})
	if err != nil {
		if errors.Is(err, services.ErrCheckoutInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("confirmation_failed", "discount usage could not be recorded", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, confirmDiscountsResponse{
		Recorded:     emptyIfNil(result.Recorded),
		LimitReached: emptyIfNil(result.LimitReached),
	})
}
