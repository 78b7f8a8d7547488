// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package risk

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sibyl/internal/api"
	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/database"
	"github.com/tomtom215/sibyl/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	records   []models.PatientRecord
	insertErr error
}

func (s *fakeStore) InsertPatient(_ context.Context, rec *models.PatientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *fakeStore) ListPatients(_ context.Context, limit, offset int) ([]models.PatientRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.records)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]models.PatientRecord{}, s.records[offset:end]...), total, nil
}

func (s *fakeStore) SearchPatients(_ context.Context, name string, _ int) ([]models.PatientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PatientRecord
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(name)) {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, source, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, source+"/"+eventType)
	return errors.New("broker down")
}

func (p *recordingPublisher) Close() error { return nil }

func newTestRouter(h *Handler) chi.Router {
	cfg := api.DefaultChiMiddlewareConfig(serviceName)
	cfg.RateLimitDisabled = true
	mw := api.NewChiMiddleware(cfg)
	r := api.NewRouter(mw, api.NewHealthHandler(serviceName))
	h.Register(r, mw)
	return r
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"age": 63, "sex": 1, "cp": 3, "trestbps": 145, "chol": 233, "fbs": 1,
		"restecg": 0, "thalach": 150, "exang": 0, "oldpeak": 2.3, "slope": 0,
		"ca": 0, "thal": 1,
	}
}

func postJSON(t *testing.T, r http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		if raw, err = json.Marshal(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var resp api.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return *resp.Error
}

func TestPredictSuccess(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	pub := &recordingPublisher{}
	r := newTestRouter(NewHandler(testModel(t), store, pub))

	body := validBody()
	body["name"] = "  Budi Santoso "
	rec := postJSON(t, r, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	p := resp.Probability
	if p.NoRisk < 0 || p.AtRisk < 0 || math.Abs(p.NoRisk+p.AtRisk-1) > 1e-9 {
		t.Errorf("probabilities %+v not a distribution", p)
	}
	if resp.Risk != LabelAtRisk {
		t.Errorf("risk = %q for a 63 year old, want %q", resp.Risk, LabelAtRisk)
	}
	if strings.Contains(rec.Body.String(), "success") {
		t.Errorf("predict body should be bare, got %s", rec.Body.String())
	}

	if len(store.records) != 1 {
		t.Fatalf("stored %d records, want 1", len(store.records))
	}
	stored := store.records[0]
	if stored.Name != "Budi Santoso" || stored.Age != 63 || stored.Thal != 1 || stored.Risk != resp.Risk {
		t.Errorf("stored record = %+v", stored)
	}
	if len(pub.events) != 1 || pub.events[0] != "risk/"+models.EventRiskPredicted {
		t.Errorf("events = %v", pub.events)
	}
}

func TestPredictWithoutNameSkipsStore(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r := newTestRouter(NewHandler(testModel(t), store, nil))
	if rec := postJSON(t, r, validBody()); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.records) != 0 {
		t.Errorf("stored %d records, want 0", len(store.records))
	}
}

func TestPredictStoreFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	store := &fakeStore{insertErr: errors.New("disk full")}
	r := newTestRouter(NewHandler(testModel(t), store, nil))
	body := validBody()
	body["name"] = "Siti"
	if rec := postJSON(t, r, body); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPredictValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(NewHandler(testModel(t), nil, nil))

	missing := validBody()
	delete(missing, "thal")
	wrongType := validBody()
	wrongType["chol"] = "high"
	nullField := validBody()
	nullField["age"] = nil
	quotedNumber := validBody()
	quotedNumber["age"] = "63"
	boolField := validBody()
	boolField["sex"] = true
	badName := validBody()
	badName["name"] = 42

	tests := []struct {
		name        string
		body        interface{}
		wantMessage string
	}{
		{"missing field", missing, "thal is required"},
		{"null field", nullField, "age is required"},
		{"non numeric", wrongType, "chol must be a number"},
		{"quoted number", quotedNumber, "age must be a number"},
		{"boolean", boolField, "sex must be a number"},
		{"non string name", badName, "name must be a string"},
		{"array body", "[1, 2]", ""},
		{"invalid json", "{\"age\": ", ""},
		{"empty body", "", ""},
		{"trailing data", "{} {}", ""},
		{"overflow", strings.Replace(mustJSON(t, validBody()), "\"chol\":233", "\"chol\":1e999", 1), "chol must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(t, r, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			apiErr := decodeError(t, rec)
			if apiErr.Code != api.ErrCodeValidation {
				t.Errorf("code = %q, want %q", apiErr.Code, api.ErrCodeValidation)
			}
			if tt.wantMessage != "" && apiErr.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestPredictWithoutModel(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, nil, nil)
	if err := h.Ready(context.Background()); err == nil {
		t.Error("Ready() should fail without a model")
	}
	rec := postJSON(t, newTestRouter(h), validBody())
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	if err := NewHandler(testModel(t), nil, nil).Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
}

func TestPatientsDisabled(t *testing.T) {
	t.Parallel()

	r := newTestRouter(NewHandler(testModel(t), nil, nil))
	for _, path := range []string{"/patients", "/patients/search?name=budi"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestListAndSearchPatients(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r := newTestRouter(NewHandler(testModel(t), store, nil))
	for _, name := range []string{"Budi Santoso", "Siti Aminah", "Agus Budiman"} {
		body := validBody()
		body["name"] = name
		if rec := postJSON(t, r, body); rec.Code != http.StatusOK {
			t.Fatalf("predict status = %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients?limit=2&offset=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data []models.PatientRecord `json:"data"`
		Meta api.APIMeta            `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 2 || list.Meta.Pagination == nil || !list.Meta.Pagination.HasMore {
		t.Errorf("list = %d records, pagination %+v", len(list.Data), list.Meta.Pagination)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/search?name=BUDI", nil))
	var search struct {
		Data []models.PatientRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &search); err != nil {
		t.Fatal(err)
	}
	if len(search.Data) != 2 {
		t.Errorf("search matched %d records, want 2", len(search.Data))
	}
}

func TestPatientsQueryValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(NewHandler(testModel(t), &fakeStore{}, nil))
	for _, path := range []string{
		"/patients?limit=abc",
		"/patients?limit=0",
		"/patients?limit=5000",
		"/patients?offset=-1",
		"/patients/search",
		"/patients/search?name=%20",
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestPredictPersistsToDuckDB(t *testing.T) {
	t.Parallel()

	db, err := database.New(&config.DatabaseConfig{Path: database.MemoryPath, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := newTestRouter(NewHandler(testModel(t), db, nil))
	body := validBody()
	body["name"] = "Dewi Lestari"
	if rec := postJSON(t, r, body); rec.Code != http.StatusOK {
		t.Fatalf("predict status = %d", rec.Code)
	}

	records, err := db.SearchPatients(context.Background(), "dewi", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Chol != 233 {
		t.Errorf("records = %+v", records)
	}
}
