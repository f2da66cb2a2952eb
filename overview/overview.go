// Package overview reduces a full snapshot into per-metric statistics.
package overview

import (
	"math"

	"bestsellers/models"
)

// accumulator tracks one metric across a single pass.
type accumulator struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (a *accumulator) observe(value float64) {
	if a.count == 0 || value < a.min {
		a.min = value
	}
	if a.count == 0 || value > a.max {
		a.max = value
	}
	a.sum += value
	a.count++
}

func (a *accumulator) summary() models.MetricSummary {
	if a.count == 0 {
		return models.MetricSummary{}
	}
	min, max := a.min, a.max
	avg := round2(a.sum / float64(a.count))
	return models.MetricSummary{
		Min:   &min,
		Max:   &max,
		Avg:   &avg,
		Count: a.count,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Build computes the statistical overview of a snapshot in one pass over
// its categories. Products missing a metric are skipped for that metric
// only; TotalProducts counts every product regardless. Map iteration order
// does not affect the result, and an empty snapshot yields all-nil metrics
// with zero counts.
func Build(snapshot models.Snapshot) models.Overview {
	var stars, price, reviews accumulator
	total := 0

	for _, products := range snapshot.Categories {
		for _, product := range products {
			total++
			if product.Price != nil {
				price.observe(product.Price.Value)
			}
			if product.Rating != nil {
				if product.Rating.Stars != nil {
					stars.observe(*product.Rating.Stars)
				}
				if product.Rating.ReviewsCount != nil {
					reviews.observe(float64(*product.Rating.ReviewsCount))
				}
			}
		}
	}

	return models.Overview{
		CategoryOrder: snapshot.CategoryOrder,
		UpdatedAt:     snapshot.UpdatedAt,
		TotalProducts: total,
		Stars:         stars.summary(),
		Price:         price.summary(),
		Reviews:       reviews.summary(),
	}
}
