// Package ranking turns raw scraped cards into the grouped per-category
// Top-N structure that gets persisted.
package ranking

import (
	"sort"

	"bestsellers/models"
	"bestsellers/parser"
)

// MapCard converts one scraped card into a Product. Title, href and
// category title are load-bearing identity data; a card missing any of them
// after normalization is rejected (ok false). Field-level parse failures
// never reject the card: the affected field is simply absent.
func MapCard(card models.ScrapedCard) (models.Product, bool) {
	title := parser.NormalizeText(card.Title)
	href := parser.NormalizeText(card.Href)
	category := parser.SlugifyCategory(card.CategoryTitle)
	if title == "" || href == "" || category == "" {
		return models.Product{}, false
	}

	rating := &models.Rating{
		RawStarsText: parser.NormalizeText(card.StarsText),
	}
	if stars, ok := parser.ParseStars(card.StarsText); ok {
		rating.Stars = &stars
	}
	if count, ok := parser.ParseReviewCount(card.ReviewsText); ok {
		rating.ReviewsCount = &count
	}

	return models.Product{
		Rank:     card.Rank,
		Title:    title,
		Href:     href,
		Image:    card.Image,
		Category: category,
		Price:    parser.ParsePrice(card.PriceText),
		Rating:   rating,
	}, true
}

// BuildProducts maps a batch of scraped cards, silently dropping rejected
// ones. The only visible signal for drops is the difference in counts.
func BuildProducts(cards []models.ScrapedCard) []models.Product {
	products := make([]models.Product, 0, len(cards))
	for _, card := range cards {
		if product, ok := MapCard(card); ok {
			products = append(products, product)
		}
	}
	return products
}

// GroupTopByCategory partitions products by category slug, orders each
// partition ascending by rank, and truncates it to limit entries. Products
// without a category cannot be indexed and are dropped. The sort is stable:
// scraped rank badges can repeat, and equal ranks must keep their original
// relative order so repeated runs stay deterministic.
func GroupTopByCategory(products []models.Product, limit int) models.ProductsByCategory {
	grouped := make(models.ProductsByCategory)
	for _, product := range products {
		if product.Category == "" {
			continue
		}
		grouped[product.Category] = append(grouped[product.Category], product)
	}

	for category, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Rank < list[j].Rank
		})
		if limit >= 0 && len(list) > limit {
			list = list[:limit]
		}
		grouped[category] = list
	}

	return grouped
}

// CategoryOrder slugifies the carousel headings in presentation order. The
// result can name categories that grouping later dropped, so it must not be
// treated as a superset of the grouped keys.
func CategoryOrder(titles []string) []string {
	order := make([]string, 0, len(titles))
	for _, title := range titles {
		order = append(order, parser.SlugifyCategory(title))
	}
	return order
}
