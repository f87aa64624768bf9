package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/itadmit/quickshop3-sub007/internal/services"
)

type stubConfirmer struct {
	cmd    services.ConfirmOrderDiscountsCommand
	result services.ConfirmOrderDiscountsResult
	err    error
}

func (s *stubConfirmer) ConfirmOrderDiscounts(_ context.Context, cmd services.ConfirmOrderDiscountsCommand) (services.ConfirmOrderDiscountsResult, error) {
	s.cmd = cmd
	return s.result, s.err
}

func newInternalRouter(confirmer services.CheckoutConfirmer) chi.Router {
	handlers := NewInternalOrderHandlers(confirmer)
	r := chi.NewRouter()
	handlers.Routes(r)
	return r
}

func TestConfirmDiscountsEndpoint(t *testing.T) {
	confirmer := &stubConfirmer{
		result: services.ConfirmOrderDiscountsResult{
			Recorded:     []string{"d_1"},
			LimitReached: []string{"d_2"},
		},
	}
	router := newInternalRouter(confirmer)

	body := `{"storeId": "store_1", "discountIds": ["d_1", "d_2"], "code": "SAVE10"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/order_42/confirm-discounts", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if confirmer.cmd.OrderID != "order_42" || confirmer.cmd.StoreID != "store_1" {
		t.Fatalf("unexpected command %+v", confirmer.cmd)
	}
	if len(confirmer.cmd.DiscountIDs) != 2 || confirmer.cmd.Code != "SAVE10" {
		t.Fatalf("unexpected command %+v", confirmer.cmd)
	}

	var resp confirmDiscountsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Recorded) != 1 || resp.Recorded[0] != "d_1" {
		t.Fatalf("unexpected recorded %v", resp.Recorded)
	}
	if len(resp.LimitReached) != 1 || resp.LimitReached[0] != "d_2" {
		t.Fatalf("unexpected limitReached %v", resp.LimitReached)
	}
}

func TestConfirmDiscountsEndpointErrors(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		router := newInternalRouter(&stubConfirmer{})
		req := httptest.NewRequest(http.MethodPost, "/orders/order_1/confirm-discounts", strings.NewReader(""))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("invalid input from service", func(t *testing.T) {
		router := newInternalRouter(&stubConfirmer{err: services.ErrCheckoutInvalidInput})
		req := httptest.NewRequest(http.MethodPost, "/orders/order_1/confirm-discounts", strings.NewReader(`{"discountIds": ["d_1"]}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		router := newInternalRouter(&stubConfirmer{err: errors.New("firestore down")})
		req := httptest.NewRequest(http.MethodPost, "/orders/order_1/confirm-discounts", strings.NewReader(`{"storeId": "s1", "discountIds": ["d_1"]}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
	})
}
