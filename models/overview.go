package models

import "time"

// MetricSummary is the reduction of one numeric metric across a snapshot.
// Min, Max and Avg are nil when the snapshot carried zero observations of
// the metric.
type MetricSummary struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Avg   *float64 `json:"avg"`
	Count int      `json:"count"`
}

// Overview is the statistical summary derived from a full snapshot.
type Overview struct {
	CategoryOrder []string      `json:"categoryOrder"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	TotalProducts int           `json:"totalProducts"`
	Stars         MetricSummary `json:"stars"`
	Price         MetricSummary `json:"price"`
	Reviews       MetricSummary `json:"reviews"`
}
