// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"errors"
	"sort"
	"time"
)

// ErrEmptyFeed is returned when a feed carries no usable entries.
var ErrEmptyFeed = errors.New("forecast feed is empty")

// Feed is the subset of the OpenWeatherMap /data/2.5/forecast response
// the forecaster reads.
type Feed struct {
	City FeedCity    `json:"city"`
	List []FeedEntry `json:"list"`
}

// FeedCity identifies the resolved location.
type FeedCity struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Timezone int    `json:"timezone"`
}

// FeedEntry is one 3-hourly step of the feed.
type FeedEntry struct {
	Dt   int64    `json:"dt"`
	Main FeedMain `json:"main"`
	Wind FeedWind `json:"wind"`
}

// FeedMain holds the temperature and humidity block.
type FeedMain struct {
	TempMax  float64 `json:"temp_max"`
	Humidity float64 `json:"humidity"`
}

// FeedWind holds the wind block.
type FeedWind struct {
	Speed float64 `json:"speed"`
}

// Sample is one observed or predicted point.
type Sample struct {
	Time      time.Time `json:"time"`
	TempMax   float64   `json:"temp_max"`
	Humidity  float64   `json:"humidity"`
	WindSpeed float64   `json:"wind_speed"`
}

// Flatten converts the feed into samples sorted by time. Entries sharing
// a timestamp keep the last one.
func Flatten(feed *Feed) ([]Sample, error) {
	if feed == nil || len(feed.List) == 0 {
		return nil, ErrEmptyFeed
	}

	byTime := make(map[int64]Sample, len(feed.List))
	for _, e := range feed.List {
		byTime[e.Dt] = Sample{
			Time:      time.Unix(e.Dt, 0).UTC(),
			TempMax:   e.Main.TempMax,
			Humidity:  e.Main.Humidity,
			WindSpeed: e.Wind.Speed,
		}
	}

	samples := make([]Sample, 0, len(byTime))
	for _, s := range byTime {
		samples = append(samples, s)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	return samples, nil
}

// CalendarFeatures returns hour of day, weekday (Sunday = 0) and month
// of t in UTC.
func CalendarFeatures(t time.Time) []float64 {
	t = t.UTC()
	return []float64{float64(t.Hour()), float64(t.Weekday()), float64(t.Month())}
}

// FutureTimes returns days*24 hourly timestamps strictly after last.
func FutureTimes(last time.Time, days int) []time.Time {
	if days < 1 {
		return nil
	}
	out := make([]time.Time, days*24)
	for k := range out {
		out[k] = last.Add(time.Duration(k+1) * time.Hour)
	}
	return out
}
