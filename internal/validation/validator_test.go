// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package validation

import (
	"strings"
	"testing"
)

type forecastForm struct {
	APIKey string `json:"api_key" validate:"required"`
	City   string `json:"city" validate:"required,max=64"`
	Days   int    `json:"days" validate:"min=1,max=14"`
}

type vitals struct {
	Age      *float64 `json:"age" validate:"required"`
	Trestbps *float64 `json:"trestbps" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     interface{}
		wantErr   bool
		wantField string
		wantMsg   string
	}{
		{
			name:    "valid form",
			input:   &forecastForm{APIKey: "k", City: "Jakarta", Days: 3},
			wantErr: false,
		},
		{
			name:      "missing key uses json name",
			input:     &forecastForm{City: "Jakarta", Days: 3},
			wantErr:   true,
			wantField: "api_key",
			wantMsg:   "api_key is required",
		},
		{
			name:      "days too large",
			input:     &forecastForm{APIKey: "k", City: "Medan", Days: 30},
			wantErr:   true,
			wantField: "days",
			wantMsg:   "days must be at most 14",
		},
		{
			name:      "city too long",
			input:     &forecastForm{APIKey: "k", City: strings.Repeat("x", 65), Days: 1},
			wantErr:   true,
			wantField: "city",
			wantMsg:   "city must be at most 64 characters",
		},
		{
			name:      "nil pointer number",
			input:     &vitals{Age: new(float64)},
			wantErr:   true,
			wantField: "trestbps",
			wantMsg:   "trestbps is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verr := ValidateStruct(tt.input)
			if !tt.wantErr {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			first := verr.Errors()[0]
			if first.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", first.Field(), tt.wantField)
			}
			if first.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", first.Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	t.Run("single field", func(t *testing.T) {
		t.Parallel()
		apiErr := NewFieldError("text", "required", "text is required").ToAPIError()
		if apiErr.Code != CodeValidationError {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Details["field"] != "text" {
			t.Errorf("Details = %v", apiErr.Details)
		}
	})

	t.Run("multiple fields", func(t *testing.T) {
		t.Parallel()
		verr := ValidateStruct(&vitals{})
		if verr == nil {
			t.Fatal("expected errors")
		}
		apiErr := verr.ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Fatalf("Details[fields] = %#v", apiErr.Details["fields"])
		}
		if !strings.Contains(apiErr.Message, "age is required") || !strings.Contains(apiErr.Message, "trestbps is required") {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}
