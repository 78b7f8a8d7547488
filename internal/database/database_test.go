// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: MemoryPath, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func patient(name string, created time.Time) *models.PatientRecord {
	p := &models.PatientRecord{Name: name, Risk: "no risk", ProbNoRisk: 0.8, ProbAtRisk: 0.2, CreatedAt: created}
	p.SetFeatures([]float64{54, 1, 0, 130, 246, 0, 1, 150, 0, 1, 2, 0, 2})
	return p
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(&config.DatabaseConfig{}); err == nil {
		t.Error("New() with empty path should fail")
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestInsertAndListPatients(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"Budi Santoso", "Siti Aminah", "Agus Budiman"} {
		rec := patient(name, base.Add(time.Duration(i)*time.Hour))
		if err := db.InsertPatient(ctx, rec); err != nil {
			t.Fatalf("InsertPatient(%s) error = %v", name, err)
		}
		if rec.ID == "" {
			t.Error("InsertPatient did not assign an ID")
		}
	}

	records, total, err := db.ListPatients(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListPatients() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(records) != 2 || records[0].Name != "Agus Budiman" || records[1].Name != "Siti Aminah" {
		t.Fatalf("first page = %+v", records)
	}
	if records[0].Chol != 246 || records[0].Thal != 2 || records[0].Risk != "no risk" {
		t.Errorf("fields not round-tripped: %+v", records[0])
	}
	if !records[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("CreatedAt = %v", records[0].CreatedAt)
	}

	page2, _, err := db.ListPatients(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 1 || page2[0].Name != "Budi Santoso" {
		t.Errorf("second page = %+v", page2)
	}
}

func TestListPatientsEmpty(t *testing.T) {
	db := setupTestDB(t)
	records, total, err := db.ListPatients(context.Background(), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || records == nil || len(records) != 0 {
		t.Errorf("empty list = %v (total %d), want non-nil empty slice", records, total)
	}
}

func TestSearchPatients(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Budi Santoso", "Siti Aminah", "Agus Budiman", "100% Real"} {
		if err := db.InsertPatient(ctx, patient(name, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"budi", []string{"Agus Budiman", "Budi Santoso"}},
		{"AMINAH", []string{"Siti Aminah"}},
		{"%", []string{"100% Real"}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		got, err := db.SearchPatients(ctx, tt.query, 10)
		if err != nil {
			t.Fatalf("SearchPatients(%q) error = %v", tt.query, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("SearchPatients(%q) = %d records, want %d", tt.query, len(got), len(tt.want))
		}
		for i := range got {
			if got[i].Name != tt.want[i] {
				t.Errorf("SearchPatients(%q)[%d] = %s, want %s", tt.query, i, got[i].Name, tt.want[i])
			}
		}
	}

	if _, err := db.SearchPatients(ctx, "  ", 10); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank search error = %v, want ErrEmptyName", err)
	}
}

func TestInsertPatientRequiresName(t *testing.T) {
	db := setupTestDB(t)
	if err := db.InsertPatient(context.Background(), patient(" ", time.Now())); !errors.Is(err, ErrEmptyName) {
		t.Errorf("error = %v, want ErrEmptyName", err)
	}
}

func TestClampPage(t *testing.T) {
	t.Parallel()

	tests := []struct{ limit, offset, wantLimit, wantOffset int }{
		{10, 5, 10, 5},
		{0, 0, MaxPageSize, 0},
		{MaxPageSize + 1, -3, MaxPageSize, 0},
	}
	for _, tt := range tests {
		l, o := clampPage(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("clampPage(%d, %d) = %d, %d", tt.limit, tt.offset, l, o)
		}
	}
}
