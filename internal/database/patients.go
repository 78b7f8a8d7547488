// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/models"
)

// MaxPageSize caps limit for list and search queries.
const MaxPageSize = 1000

// ErrEmptyName is returned when a record or search has no name.
var ErrEmptyName = errors.New("patient name is empty")

const patientColumns = `id, name, age, sex, cp, trestbps, chol, fbs, restecg,
	thalach, exang, oldpeak, slope, ca, thal, risk, prob_no_risk, prob_at_risk, created_at`

// InsertPatient stores rec. Empty ID and zero CreatedAt are filled in and
// written back to rec.
func (db *DB) InsertPatient(ctx context.Context, rec *models.PatientRecord) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "patients", time.Since(start), err) }()

	if strings.TrimSpace(rec.Name) == "" {
		return ErrEmptyName
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO patients (`+patientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name,
		rec.Age, rec.Sex, rec.CP, rec.Trestbps, rec.Chol, rec.FBS, rec.Restecg,
		rec.Thalach, rec.Exang, rec.Oldpeak, rec.Slope, rec.CA, rec.Thal,
		rec.Risk, rec.ProbNoRisk, rec.ProbAtRisk, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}
	return nil
}

// ListPatients returns one page of records, newest first, and the total
// number of records.
func (db *DB) ListPatients(ctx context.Context, limit, offset int) (records []models.PatientRecord, total int, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list", "patients", time.Since(start), err) }()

	limit, offset = clampPage(limit, offset)

	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query patients: %w", err)
	}
	records, err = scanPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SearchPatients returns records whose name contains name, ignoring
// case, newest first.
func (db *DB) SearchPatients(ctx context.Context, name string, limit int) (records []models.PatientRecord, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("search", "patients", time.Since(start), err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	limit, _ = clampPage(limit, 0)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients
		WHERE contains(lower(name), lower(?))
		ORDER BY created_at DESC, id LIMIT ?`,
		name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return scanPatients(rows)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanPatients(rows *sql.Rows) ([]models.PatientRecord, error) {
	defer rows.Close()

	records := make([]models.PatientRecord, 0)
	for rows.Next() {
		var p models.PatientRecord
		if err := rows.Scan(
			&p.ID, &p.Name,
			&p.Age, &p.Sex, &p.CP, &p.Trestbps, &p.Chol, &p.FBS, &p.Restecg,
			&p.Thalach, &p.Exang, &p.Oldpeak, &p.Slope, &p.CA, &p.Thal,
			&p.Risk, &p.ProbNoRisk, &p.ProbAtRisk, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}
	return records, nil
}
