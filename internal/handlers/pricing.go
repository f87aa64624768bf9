package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
	"github.com/itadmit/quickshop3-sub007/internal/platform/httpx"
	"github.com/itadmit/quickshop3-sub007/internal/services"
)

const maxCalculateBodySize = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

// PricingHandlers exposes the public cart pricing endpoints.
type PricingHandlers struct {
	calculator services.CartCalculator
	discounts  services.DiscountLookup
	exponent   int
}

// NewPricingHandlers constructs the public pricing handlers. exponent is
// the currency's minor-unit digit count used for decimal strings at the
// boundary.
func NewPricingHandlers(calculator services.CartCalculator, discounts services.DiscountLookup, exponent int) *PricingHandlers {
	if exponent < 0 {
		exponent = domain.DefaultCurrencyExponent
	}
	return &PricingHandlers{
		calculator: calculator,
		discounts:  discounts,
		exponent:   exponent,
	}
}

// Routes wires the public pricing endpoints onto the provided router.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/cart/calculate", h.calculate)
	r.Get("/discounts/{code}", h.getDiscount)
}

type calculateRequest struct {
	StoreID        string                 `json:"storeId"`
	SessionID      string                 `json:"sessionId,omitempty"`
	DiscountCode   string                 `json:"discountCode,omitempty"`
	CartLines      []calculateLineRequest `json:"cartLines"`
	ShippingRateID string                 `json:"shippingRateId,omitempty"`
	ShippingPrice  string                 `json:"shippingPrice,omitempty"`
	Customer       *customerRequest       `json:"customer,omitempty"`
}

type calculateLineRequest struct {
	VariantID     string   `json:"variantId"`
	ProductID     string   `json:"productId"`
	UnitPrice     string   `json:"unitPrice"`
	Quantity      int      `json:"quantity"`
	ProductTags   []string `json:"productTags,omitempty"`
	CollectionIDs []string `json:"collectionIds,omitempty"`
}

type customerRequest struct {
	CustomerID          string `json:"customerId,omitempty"`
	Segment             string `json:"segment,omitempty"`
	LifetimeOrdersCount int    `json:"lifetimeOrdersCount,omitempty"`
	LifetimeValue       string `json:"lifetimeValue,omitempty"`
}

type calculateResponse struct {
	Subtotal               string             `json:"subtotal"`
	ItemsDiscount          string             `json:"itemsDiscount"`
	ShippingBeforeDiscount string             `json:"shippingBeforeDiscount"`
	ShippingAfterDiscount  string             `json:"shippingAfterDiscount"`
	Total                  string             `json:"total"`
	Discounts              []discountResponse `json:"discounts"`
	IsValid                bool               `json:"isValid"`
	Errors                 []string           `json:"errors"`
	Warnings               []string           `json:"warnings"`
}

type discountResponse struct {
	DiscountID   string `json:"discountId"`
	Source       string `json:"source"`
	Kind         string `json:"kind"`
	Description  string `json:"description"`
	AmountOff    string `json:"amountOff"`
	FreeShipping bool   `json:"freeShipping,omitempty"`
}

func (h *PricingHandlers) calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_unavailable", "pricing service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCalculateBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req calculateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	input, err := h.toCalculationInput(req)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.calculator.Calculate(ctx, input)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("calculation_failed", "cart could not be priced", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, h.toCalculateResponse(result))
}

func (h *PricingHandlers) toCalculationInput(req calculateRequest) (services.CalculationInput, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return services.CalculationInput{}, errors.New("storeId is required")
	}

	input := services.CalculationInput{
		StoreID:     storeID,
		SessionID:   strings.TrimSpace(req.SessionID),
		EnteredCode: req.DiscountCode,
	}

	for i, line := range req.CartLines {
		unitPrice, err := domain.ParseMoney(line.UnitPrice, h.exponent)
		if err != nil {
			return services.CalculationInput{}, fmt.Errorf("cartLines[%d].unitPrice: %w", i, err)
		}
		input.Lines = append(input.Lines, domain.CartLine{
			VariantID:     strings.TrimSpace(line.VariantID),
			ProductID:     strings.TrimSpace(line.ProductID),
			UnitPrice:     unitPrice,
			Quantity:      line.Quantity,
			ProductTags:   line.ProductTags,
			CollectionIDs: line.CollectionIDs,
		})
	}

	if strings.TrimSpace(req.ShippingPrice) != "" || strings.TrimSpace(req.ShippingRateID) != "" {
		price := int64(0)
		if strings.TrimSpace(req.ShippingPrice) != "" {
			parsed, err := domain.ParseMoney(req.ShippingPrice, h.exponent)
			if err != nil {
				return services.CalculationInput{}, fmt.Errorf("shippingPrice: %w", err)
			}
			price = parsed
		}
		input.Shipping = &domain.ShippingCandidate{
			RateID: strings.TrimSpace(req.ShippingRateID),
			Price:  price,
		}
	}

	if req.Customer != nil {
		input.Customer = domain.CustomerContext{
			CustomerID:          strings.TrimSpace(req.Customer.CustomerID),
			Segment:             domain.CustomerSegment(strings.TrimSpace(req.Customer.Segment)),
			LifetimeOrdersCount: req.Customer.LifetimeOrdersCount,
		}
		if strings.TrimSpace(req.Customer.LifetimeValue) != "" {
			value, err := domain.ParseMoney(req.Customer.LifetimeValue, h.exponent)
			if err != nil {
				return services.CalculationInput{}, fmt.Errorf("customer.lifetimeValue: %w", err)
			}
			input.Customer.LifetimeValue = value
		}
	}
	if input.Customer.Segment == "" {
		input.Customer.Segment = domain.SegmentNone
	}

	return input, nil
}

func (h *PricingHandlers) toCalculateResponse(result domain.CalculationResult) calculateResponse {
	resp := calculateResponse{
		Subtotal:               domain.FormatMoney(result.Subtotal, h.exponent),
		ItemsDiscount:          domain.FormatMoney(result.ItemsDiscount, h.exponent),
		ShippingBeforeDiscount: domain.FormatMoney(result.ShippingBeforeDiscount, h.exponent),
		ShippingAfterDiscount:  domain.FormatMoney(result.ShippingAfterDiscount, h.exponent),
		Total:                  domain.FormatMoney(result.Total, h.exponent),
		Discounts:              make([]discountResponse, 0, len(result.Discounts)),
		IsValid:                result.IsValid,
		Errors:                 emptyIfNil(result.Errors),
		Warnings:               emptyIfNil(result.Warnings),
	}
	for _, effect := range result.Discounts {
		resp.Discounts = append(resp.Discounts, discountResponse{
			DiscountID:   effect.DiscountID,
			Source:       string(effect.Source),
			Kind:         string(effect.Kind),
			Description:  effect.Description,
			AmountOff:    domain.FormatMoney(effect.AmountOff, h.exponent),
			FreeShipping: effect.FreeShipping,
		})
	}
	return resp
}

type publicDiscountResponse struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	IsAvailable bool   `json:"isAvailable"`
	StartsAt    string `json:"startsAt,omitempty"`
	EndsAt      string `json:"endsAt,omitempty"`
}

func (h *PricingHandlers) getDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_unavailable", "discount lookup is unavailable", http.StatusServiceUnavailable))
		return
	}

	storeID := strings.TrimSpace(r.URL.Query().Get("storeId"))
	if storeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "storeId query parameter is required", http.StatusBadRequest))
		return
	}
	code := chi.URLParam(r, "code")

	public, err := h.discounts.GetPublicDiscount(ctx, storeID, code)
	if err != nil {
		writeDiscountLookupError(ctx, w, err)
		return
	}

	resp := publicDiscountResponse{
		Code:        public.Code,
		Description: public.Description,
		Kind:        string(public.Kind),
		IsAvailable: public.IsAvailable,
	}
	if !public.StartsAt.IsZero() {
		resp.StartsAt = public.StartsAt.UTC().Format(time.RFC3339)
	}
	if !public.EndsAt.IsZero() {
		resp.EndsAt = public.EndsAt.UTC().Format(time.RFC3339)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func writeDiscountLookupError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDiscountInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "discount code is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount code not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "discount catalog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "discount lookup failed", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxCalculateBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
