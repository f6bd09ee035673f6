package validator

import (
	"testing"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/models"
)

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantErr bool
	}{
		{"valid update", models.UserUpdate{FirstName: "Ada", Email: "ada@example.com", PrimaryCurrency: "AUD"}, false},
		{"unknown currency", models.UserUpdate{FirstName: "Ada", Email: "ada@example.com", PrimaryCurrency: "XYZ"}, true},
		{"bad email", models.UserUpdate{FirstName: "Ada", Email: "ada"}, true},
		{"valid budget category", models.TransactionUpdate{CategoryID: 3, BudgetCategory: "lifestyle"}, false},
		{"unknown budget category", models.TransactionUpdate{CategoryID: 3, BudgetCategory: "fun"}, true},
		{"missing category", models.TransactionUpdate{}, true},
		{"login form", models.LoginForm{Fields: []models.LoginFormField{{ID: "username", Value: "u"}}}, false},
		{"empty login form", models.LoginForm{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := err.(*apperrors.AppError)
			if !ok {
				t.Fatalf("expected *AppError, got %T: %v", err, err)
			}
			if appErr.Code != "INVALID_INPUT" {
				t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
			}
		})
	}
}
