// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package sentiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Class labels in model output order.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Labels maps class ids to names.
var Labels = []string{LabelPositive, LabelNegative, LabelNeutral}

// Dataset column headers, matched case-insensitively.
const (
	TextColumn  = "tweet"
	LabelColumn = "label"
)

// ErrMissingColumn is returned when the header lacks Tweet or Label.
var ErrMissingColumn = errors.New("missing column")

// Dataset is a set of raw texts with class ids.
type Dataset struct {
	Texts  []string
	Labels []int
	// Skipped counts rows with an unknown label or an empty text.
	Skipped int
}

// Len returns the number of usable rows.
func (d *Dataset) Len() int { return len(d.Texts) }

// LabelID returns the class id of a label name.
func LabelID(label string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelPositive:
		return 0, true
	case LabelNegative:
		return 1, true
	case LabelNeutral:
		return 2, true
	}
	return 0, false
}

// LoadDataset reads path by extension: .xlsx through excelize, anything
// else as CSV. sheet selects the worksheet; empty means the first.
func LoadDataset(path, sheet string) (*Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var ds *Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ds, err = ReadXLSX(f, sheet)
	default:
		ds, err = ReadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	return ds, nil
}

// ReadXLSX reads a workbook.
func ReadXLSX(r io.Reader, sheet string) (*Dataset, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = book.Close() }()

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromRows(rows)
}

// ReadCSV reads comma-separated text with a header row.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.New("dataset is empty")
	}
	textCol, labelCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case TextColumn:
			textCol = i
		case LabelColumn:
			labelCol = i
		}
	}
	if textCol < 0 {
		return nil, fmt.Errorf("%w: Tweet", ErrMissingColumn)
	}
	if labelCol < 0 {
		return nil, fmt.Errorf("%w: Label", ErrMissingColumn)
	}

	ds := &Dataset{}
	for _, row := range rows[1:] {
		if textCol >= len(row) || labelCol >= len(row) {
			ds.Skipped++
			continue
		}
		id, ok := LabelID(row[labelCol])
		text := strings.TrimSpace(row[textCol])
		if !ok || text == "" {
			ds.Skipped++
			continue
		}
		ds.Texts = append(ds.Texts, text)
		ds.Labels = append(ds.Labels, id)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no labeled rows")
	}
	return ds, nil
}
