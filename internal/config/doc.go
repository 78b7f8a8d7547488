// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package config loads Sibyl configuration with Koanf v2.
//
// Sources are layered, later layers winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. An optional YAML file: the --config flag, CONFIG_PATH, or the first
//     of DefaultConfigPaths that exists
//  3. Environment variables, mapped explicitly by envTransformFunc
//
// Example config.yaml:
//
//	server:
//	  host: 0.0.0.0
//	  risk_port: 5000
//	weather:
//	  cities: [Jakarta, Surabaya, Bandung]
//	  cache_backend: badger
//	sentiment:
//	  dataset_path: datasets/Indonlu_Sentiment.xlsx
//	  epochs: 5
//
// Every loaded Config is passed through Validate before it is returned.
package config
