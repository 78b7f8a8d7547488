// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext bounds schema statements.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) initialize() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, q := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

func schemaQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			age DOUBLE NOT NULL,
			sex DOUBLE NOT NULL,
			cp DOUBLE NOT NULL,
			trestbps DOUBLE NOT NULL,
			chol DOUBLE NOT NULL,
			fbs DOUBLE NOT NULL,
			restecg DOUBLE NOT NULL,
			thalach DOUBLE NOT NULL,
			exang DOUBLE NOT NULL,
			oldpeak DOUBLE NOT NULL,
			slope DOUBLE NOT NULL,
			ca DOUBLE NOT NULL,
			thal DOUBLE NOT NULL,
			risk VARCHAR NOT NULL,
			prob_no_risk DOUBLE NOT NULL,
			prob_at_risk DOUBLE NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients(created_at)`,
	}
}
