// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		City string `json:"city"`
		Days int    `json:"days"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		empty   bool
	}{
		{name: "valid", body: `{"city":"Jakarta","days":3}`},
		{name: "unknown field allowed", body: `{"city":"Bandung","extra":true}`},
		{name: "empty", body: ``, wantErr: true, empty: true},
		{name: "malformed", body: `{"city":`, wantErr: true},
		{name: "trailing data", body: `{"city":"a"}{"city":"b"}`, wantErr: true},
		{name: "wrong type", body: `{"days":"three"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.empty && !errors.Is(err, ErrEmptyBody) {
				t.Errorf("error = %v, want ErrEmptyBody", err)
			}
		})
	}
}

func TestDecodeJSONBodyLimit(t *testing.T) {
	t.Parallel()

	big := `{"city":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var p map[string]string
	if err := DecodeJSON(httptest.NewRecorder(), req, &p); err == nil {
		t.Fatal("expected error for oversized body")
	}
}
