package server

import (
	"fmt"
	"net/http"
	"testing"

	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
)

func TestMapErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
	}{
		{
			name:        "reconciliation gets its own type",
			err:         paymentdomain.ErrReconciliation,
			wantStatus:  http.StatusConflict,
			wantType:    "reconciliation_error",
			wantMessage: "reconciliation_required",
		},
		{
			name:        "wrapped reconciliation still matches",
			err:         fmt.Errorf("apply payment: %w", paymentdomain.ErrReconciliation),
			wantStatus:  http.StatusConflict,
			wantType:    "reconciliation_error",
			wantMessage: "reconciliation_required",
		},
		{
			name:        "transition conflicts stay plain conflicts",
			err:         invoicedomain.ErrInvalidTransition,
			wantStatus:  http.StatusConflict,
			wantType:    "conflict",
			wantMessage: "invalid_transition",
		},
		{
			name:        "missing rows map to not found",
			err:         clientdomain.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantType:    "not_found",
			wantMessage: "not found",
		},
		{
			name:       "domain validation maps to validation_error",
			err:        invoicedomain.ErrInvalidRate,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if payload.Type != tt.wantType {
				t.Fatalf("type = %q, want %q", payload.Type, tt.wantType)
			}
			if tt.wantMessage != "" && payload.Message != tt.wantMessage {
				t.Fatalf("message = %q, want %q", payload.Message, tt.wantMessage)
			}
		})
	}
}

func TestClassifyErrorForLogReconciliation(t *testing.T) {
	errType, code := classifyErrorForLog(paymentdomain.ErrReconciliation)
	if errType != "reconciliation_error" {
		t.Fatalf("error type = %q, want reconciliation_error", errType)
	}
	if code != "reconciliation_required" {
		t.Fatalf("error code = %q, want reconciliation_required", code)
	}
}
