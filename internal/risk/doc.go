// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

/*
Package risk serves and trains the heart-disease risk classifier.

A prediction takes the 13 clinical features in a fixed order

	age, sex, cp, trestbps, chol, fbs, restecg, thalach, exang, oldpeak, slope, ca, thal

standardizes them with a persisted StandardScaler and scores them with a
persisted gradient-boosted binary classifier. Both artifacts are JSON files
written by Train and loaded once by LoadModel, which rejects a scaler whose
width differs from the classifier's.

HTTP surface (see Handler.Register):

	POST /predict                  13 features (+ optional name) -> probabilities and label
	GET  /patients?limit=&offset=  stored predictions, newest first
	GET  /patients/search?name=    case-insensitive name search

The /patients routes answer 503 when no history database is configured.
*/
package risk
