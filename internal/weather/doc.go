// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

/*
Package weather serves hourly weather forecasts extrapolated from the
OpenWeatherMap 5 day / 3 hour feed.

For each request the service fetches (or reuses a cached copy of) the
city's feed, flattens it into a time-ordered series of maximum
temperature, humidity and wind speed, and fits one gradient-boosted
regressor per target on calendar features (hour, weekday, month). An
80/20 holdout gives each target an RMSE. The regressors then predict
days*24 hourly points following the last observation, and the observed
and predicted series are drawn into one PNG with gonum/plot.

Routes (see Handler.Register):

	GET  /                  HTML form
	POST /forecast          form fields api_key, city, days -> HTML with embedded PNG
	POST /api/v1/forecast   JSON {api_key, city, days} -> JSON points

HTML routes report failures as HTML pages; the JSON route uses the API
error envelope. Status mapping:

	400  bad input or rejected API key
	404  unknown city
	422  empty feed
	502  upstream failure or open circuit breaker
	500  model or rendering failure

The upstream client is guarded by a gobreaker circuit breaker and an
x/time/rate token bucket. Feeds are cached per city in memory or in
BadgerDB, depending on weather.cache_backend.
*/
package weather
