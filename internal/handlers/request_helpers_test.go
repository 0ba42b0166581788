package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fishmarket/internal/models"
	"fishmarket/internal/service"
	"fishmarket/internal/store"
)

func domainErrorStatus(t *testing.T, err error) int {
	t.Helper()

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	respondDomainError(c, "TEST route", err)
	return recorder.Code
}

func TestRespondDomainErrorBusinessFailuresAreNever500(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"unavailable", store.ErrUnavailable, http.StatusBadRequest},
		{"invalid quantity", store.ErrInvalidQuantity, http.StatusBadRequest},
		{"cart empty", service.ErrCartEmpty, http.StatusBadRequest},
		{"invalid slot", service.ErrInvalidSlot, http.StatusBadRequest},
		{"invalid date", service.ErrInvalidDate, http.StatusBadRequest},
		{"past date", service.ErrPastDate, http.StatusBadRequest},
		{"invalid state", service.ErrInvalidState, http.StatusBadRequest},
		{"invalid payment method", service.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{"invalid order status", models.ErrInvalidOrderStatus, http.StatusBadRequest},
		{"insufficient stock", store.InsufficientStockError{ProductID: primitive.NewObjectID(), Name: "Seer Fish", Available: 1, Requested: 3}, http.StatusBadRequest},
		{"cart invalid", service.CartInvalidError{Reasons: []string{"x"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		if got := domainErrorStatus(t, tt.err); got != tt.want {
			t.Fatalf("%s: expected status %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestRespondDomainErrorMalformedDeliveryDateIs400(t *testing.T) {
	// A malformed date in the checkout request is client input, not an
	// infrastructure failure.
	now := time.Date(2025, 12, 6, 15, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	_, err := service.ValidateDeliveryWindow(now, "06-12-2025", "08:00-12:00")
	if err == nil {
		t.Fatal("expected validation error for malformed date")
	}

	if got := domainErrorStatus(t, err); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed delivery date, got %d", got)
	}
}

func TestRespondDomainErrorWrappedErrorsKeepTheirStatus(t *testing.T) {
	wrapped := errors.Join(errors.New("checkout"), service.ErrPastDate)
	if got := domainErrorStatus(t, wrapped); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrapped business error, got %d", got)
	}
}

func TestRespondDomainErrorUnknownErrorIs500(t *testing.T) {
	if got := domainErrorStatus(t, errors.New("connection reset")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for infrastructure error, got %d", got)
	}
}
