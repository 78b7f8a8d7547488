// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package sentiment

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLabelID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"positive", 0, true},
		{" Negative ", 1, true},
		{"NEUTRAL", 2, true},
		{"mixed", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := LabelID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LabelID(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	csvText := "No,Tweet,Label\n" +
		"1,Pelayanan bagus sekali,positive\n" +
		"2,\"Kecewa, sangat buruk\",negative\n" +
		"3,Jadwal rapat besok,neutral\n" +
		"4,Entah,mixed\n" +
		"5,,positive\n" +
		"6\n"

	ds, err := ReadCSV(strings.NewReader(csvText))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Len() != 3 || ds.Skipped != 3 {
		t.Errorf("Len() = %d, Skipped = %d; want 3, 3", ds.Len(), ds.Skipped)
	}
	if ds.Texts[1] != "Kecewa, sangat buruk" || ds.Labels[1] != 1 {
		t.Errorf("row 2 = %q/%d", ds.Texts[1], ds.Labels[1])
	}
}

func TestReadCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		csv     string
		wantErr error
	}{
		{"no tweet column", "Text,Label\na,positive\n", ErrMissingColumn},
		{"no label column", "Tweet,Sentiment\na,positive\n", ErrMissingColumn},
		{"empty", "", nil},
		{"no usable rows", "Tweet,Label\na,unknown\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tt.csv))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()
	if sheet != "Sheet1" {
		if err := book.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatal(err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := row
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDatasetXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	writeWorkbook(t, path, "Tweets", [][]interface{}{
		{"Tweet", "Label"},
		{"Mantap sekali", "positive"},
		{"Jelek dan lambat", "negative"},
		{"Pengumuman jadwal", "neutral"},
		{"???", "other"},
	})

	ds, err := LoadDataset(path, "")
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if ds.Len() != 3 || ds.Skipped != 1 {
		t.Errorf("Len() = %d, Skipped = %d", ds.Len(), ds.Skipped)
	}
	if ds.Labels[2] != 2 || ds.Texts[0] != "Mantap sekali" {
		t.Errorf("dataset = %+v", ds)
	}

	if _, err := LoadDataset(path, "Missing"); err == nil {
		t.Error("LoadDataset with unknown sheet should fail")
	}
}

func TestLoadDatasetCSVAndMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")
	if err := os.WriteFile(path, []byte("Tweet,Label\nbagus,positive\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadDataset(path, "")
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if ds.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ds.Len())
	}

	if _, err := LoadDataset(filepath.Join(dir, "nope.xlsx"), ""); err == nil {
		t.Error("missing file should fail")
	}
}
