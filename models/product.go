// Package models defines the data structures shared across the scraper,
// the ranking pipeline, and the HTTP API.
package models

import "time"

// Money is a parsed price. Raw preserves the scraped text for audit.
type Money struct {
	Raw      string  `json:"raw,omitempty" bson:"raw,omitempty"`
	Currency string  `json:"currency,omitempty" bson:"currency,omitempty"`
	Value    float64 `json:"value" bson:"value"`
}

// Rating holds the star score and review count of a product. Stars and
// ReviewsCount are nil when the scraped text did not parse; RawStarsText is
// kept even then so garbled markup can be inspected later.
type Rating struct {
	Stars        *float64 `json:"stars,omitempty" bson:"stars,omitempty"`
	ReviewsCount *int     `json:"reviewsCount,omitempty" bson:"reviewsCount,omitempty"`
	RawStarsText string   `json:"rawStarsText,omitempty" bson:"rawStarsText,omitempty"`
}

// Product is one ranked bestseller entry. Rank is unique within its
// category after grouping; Title and Href are never empty.
type Product struct {
	Rank     int     `json:"rank" bson:"rank"`
	Title    string  `json:"title" bson:"title"`
	Href     string  `json:"href" bson:"href"`
	Image    string  `json:"image,omitempty" bson:"image,omitempty"`
	Category string  `json:"category,omitempty" bson:"category,omitempty"`
	Price    *Money  `json:"price,omitempty" bson:"price,omitempty"`
	Rating   *Rating `json:"rating,omitempty" bson:"rating,omitempty"`
}

// ProductsByCategory maps a category slug to its Top-N products, ordered
// ascending by rank.
type ProductsByCategory map[string][]Product

// Snapshot is the single persisted record holding the latest full
// bestseller ranking. Every refresh replaces it wholesale; no history is
// kept.
type Snapshot struct {
	Categories    ProductsByCategory `json:"categories" bson:"categories"`
	CategoryOrder []string           `json:"categoryOrder" bson:"categoryOrder"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
	SourceURL     string             `json:"sourceUrl" bson:"sourceUrl"`
}

// RefreshPayload is the grouped refresh body exchanged between the scrape
// job and the API.
type RefreshPayload struct {
	Categories    ProductsByCategory `json:"categories"`
	CategoryOrder []string           `json:"categoryOrder"`
}

// ScrapedCard is one raw carousel card as captured from the bestsellers
// page, before any normalization. Text fields may be empty or garbled.
type ScrapedCard struct {
	Rank          int    `json:"rank"`
	Title         string `json:"title"`
	Href          string `json:"href"`
	CategoryTitle string `json:"categoryTitle"`
	Image         string `json:"image,omitempty"`
	PriceText     string `json:"priceText,omitempty"`
	StarsText     string `json:"starsText,omitempty"`
	ReviewsText   string `json:"reviewsText,omitempty"`
}

// ScrapeResult is the outcome of one scrape of the bestsellers page.
type ScrapeResult struct {
	Cards          []ScrapedCard
	CategoryTitles []string
	StartTime      time.Time
	EndTime        time.Time
	RequestCount   int
	ErrorCount     int
	RetryCount     int
	ErrorsByType   map[string]int
}
