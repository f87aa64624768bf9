package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
	"github.com/itadmit/quickshop3-sub007/internal/services"
)

type stubCalculator struct {
	input  services.CalculationInput
	result domain.CalculationResult
	err    error
}

func (s *stubCalculator) Calculate(_ context.Context, input services.CalculationInput) (domain.CalculationResult, error) {
	s.input = input
	return s.result, s.err
}

type stubLookup struct {
	public services.DiscountPublic
	err    error

	storeID string
	code    string
}

func (s *stubLookup) GetPublicDiscount(_ context.Context, storeID string, code string) (services.DiscountPublic, error) {
	s.storeID = storeID
	s.code = code
	return s.public, s.err
}

func newPricingRouter(calculator services.CartCalculator, lookup services.DiscountLookup) chi.Router {
	handlers := NewPricingHandlers(calculator, lookup, 2)
	r := chi.NewRouter()
	handlers.Routes(r)
	return r
}

func TestCalculateEndpoint(t *testing.T) {
	calculator := &stubCalculator{
		result: domain.CalculationResult{
			Subtotal:               10000,
			ItemsDiscount:          1900,
			ShippingBeforeDiscount: 700,
			ShippingAfterDiscount:  700,
			Total:                  8800,
			IsValid:                true,
			Discounts: []domain.DiscountEffect{
				{DiscountID: "d1", Source: domain.SourceAutomatic, Kind: domain.DiscountKindPercentage, Description: "Summer Sale", AmountOff: 1900},
			},
		},
	}
	router := newPricingRouter(calculator, nil)

	body := `{
		"storeId": "store_1",
		"sessionId": "sess_1",
		"discountCode": "save10",
		"cartLines": [
			{"variantId": "v1", "productId": "p1", "unitPrice": "25.99", "quantity": 3},
			{"variantId": "v2", "productId": "p2", "unitPrice": "9.99", "quantity": 2, "productTags": ["summer"]}
		],
		"shippingRateId": "standard",
		"shippingPrice": "7.00",
		"customer": {"customerId": "cust_1", "segment": "vip", "lifetimeOrdersCount": 4, "lifetimeValue": "250.00"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/cart/calculate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if calculator.input.StoreID != "store_1" || calculator.input.SessionID != "sess_1" {
		t.Fatalf("unexpected input ids %+v", calculator.input)
	}
	if len(calculator.input.Lines) != 2 || calculator.input.Lines[0].UnitPrice != 2599 {
		t.Fatalf("unexpected parsed lines %+v", calculator.input.Lines)
	}
	if calculator.input.Shipping == nil || calculator.input.Shipping.Price != 700 {
		t.Fatalf("unexpected shipping %+v", calculator.input.Shipping)
	}
	if calculator.input.Customer.Segment != domain.SegmentVIP || calculator.input.Customer.LifetimeValue != 25000 {
		t.Fatalf("unexpected customer %+v", calculator.input.Customer)
	}

	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Subtotal != "100.00" || resp.ItemsDiscount != "19.00" || resp.Total != "88.00" {
		t.Fatalf("unexpected money strings %+v", resp)
	}
	if len(resp.Discounts) != 1 || resp.Discounts[0].AmountOff != "19.00" {
		t.Fatalf("unexpected discounts %+v", resp.Discounts)
	}
	if !resp.IsValid || len(resp.Errors) != 0 || len(resp.Warnings) != 0 {
		t.Fatalf("expected clean valid response, got %+v", resp)
	}
}

func TestCalculateEndpointValidation(t *testing.T) {
	router := newPricingRouter(&stubCalculator{}, nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "empty body", body: "", status: http.StatusBadRequest},
		{name: "malformed json", body: "{", status: http.StatusBadRequest},
		{name: "missing store", body: `{"cartLines": []}`, status: http.StatusBadRequest},
		{name: "bad money string", body: `{"storeId": "s1", "cartLines": [{"variantId": "v1", "unitPrice": "abc", "quantity": 1}]}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cart/calculate", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCalculateEndpointOversizedBody(t *testing.T) {
	router := newPricingRouter(&stubCalculator{}, nil)

	body := `{"storeId": "s1", "discountCode": "` + strings.Repeat("A", maxCalculateBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/cart/calculate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestGetDiscountEndpoint(t *testing.T) {
	lookup := &stubLookup{
		public: services.DiscountPublic{
			Code:        "SUMMER10",
			Description: "10% off",
			Kind:        domain.DiscountKindPercentage,
			IsAvailable: true,
		},
	}
	router := newPricingRouter(nil, lookup)

	req := httptest.NewRequest(http.MethodGet, "/discounts/summer10?storeId=store_1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if lookup.storeID != "store_1" || lookup.code != "summer10" {
		t.Fatalf("unexpected lookup args %q %q", lookup.storeID, lookup.code)
	}

	var resp publicDiscountResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Code != "SUMMER10" || !resp.IsAvailable || resp.Kind != "percentage" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGetDiscountEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: services.ErrDiscountNotFound, status: http.StatusNotFound},
		{name: "invalid code", err: services.ErrDiscountInvalidCode, status: http.StatusBadRequest},
		{name: "catalog down", err: services.ErrDiscountUnavailable, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newPricingRouter(nil, &stubLookup{err: tc.err})
			req := httptest.NewRequest(http.MethodGet, "/discounts/NOPE?storeId=store_1", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}

	t.Run("missing store id", func(t *testing.T) {
		router := newPricingRouter(nil, &stubLookup{})
		req := httptest.NewRequest(http.MethodGet, "/discounts/SAVE", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}
