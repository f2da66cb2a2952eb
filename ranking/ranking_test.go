package ranking

import (
	"testing"

	"bestsellers/models"
)

func TestMapCard(t *testing.T) {
	tests := []struct {
		name   string
		card   models.ScrapedCard
		reject bool
	}{
		{
			name: "complete card",
			card: models.ScrapedCard{
				Rank:          1,
				Title:         "Echo Dot 5ª geração",
				Href:          "https://www.amazon.com.br/dp/B09B8VGCR8",
				CategoryTitle: "Eletrônicos",
				PriceText:     "R$ 279,00",
				StarsText:     "4,8 de 5 estrelas",
				ReviewsText:   "12.345",
			},
		},
		{
			name: "missing title",
			card: models.ScrapedCard{
				Rank:          1,
				Title:         "   ",
				Href:          "https://example.com/dp/x",
				CategoryTitle: "Livros",
			},
			reject: true,
		},
		{
			name: "missing href",
			card: models.ScrapedCard{
				Rank:          1,
				Title:         "Algum Livro",
				CategoryTitle: "Livros",
			},
			reject: true,
		},
		{
			name: "missing category title",
			card: models.ScrapedCard{
				Rank:  1,
				Title: "Algum Livro",
				Href:  "https://example.com/dp/x",
			},
			reject: true,
		},
		{
			name: "unparseable optional fields keep the card",
			card: models.ScrapedCard{
				Rank:          2,
				Title:         "Produto sem preço",
				Href:          "https://example.com/dp/y",
				CategoryTitle: "Cozinha",
				PriceText:     "indisponível",
				StarsText:     "sem estrelas",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, ok := MapCard(tt.card)
			if ok == tt.reject {
				t.Fatalf("MapCard ok = %v, want %v", ok, !tt.reject)
			}
			if tt.reject {
				return
			}
			if product.Rank != tt.card.Rank {
				t.Errorf("rank = %d, want %d", product.Rank, tt.card.Rank)
			}
			if product.Category == "" {
				t.Errorf("category slug is empty")
			}
		})
	}
}

func TestMapCardFieldParsing(t *testing.T) {
	product, ok := MapCard(models.ScrapedCard{
		Rank:          3,
		Title:         "  Echo   Dot ",
		Href:          "https://www.amazon.com.br/dp/B09B8VGCR8",
		CategoryTitle: "Eletrônicos e Tecnologia",
		PriceText:     "R$ 1.234,56",
		StarsText:     "4,7 de 5 estrelas",
		ReviewsText:   "1.234 avaliações",
	})
	if !ok {
		t.Fatalf("card unexpectedly rejected")
	}

	if product.Title != "Echo Dot" {
		t.Errorf("title = %q, want normalized %q", product.Title, "Echo Dot")
	}
	if product.Category != "eletronicos-e-tecnologia" {
		t.Errorf("category = %q, want %q", product.Category, "eletronicos-e-tecnologia")
	}
	if product.Price == nil || product.Price.Value != 1234.56 {
		t.Errorf("price = %+v, want value 1234.56", product.Price)
	}
	if product.Rating == nil || product.Rating.Stars == nil || *product.Rating.Stars != 4.7 {
		t.Errorf("stars = %+v, want 4.7", product.Rating)
	}
	if product.Rating.ReviewsCount == nil || *product.Rating.ReviewsCount != 1234 {
		t.Errorf("reviews = %+v, want 1234", product.Rating.ReviewsCount)
	}
}

func TestMapCardKeepsRawStarsTextOnParseFailure(t *testing.T) {
	product, ok := MapCard(models.ScrapedCard{
		Rank:          1,
		Title:         "Produto",
		Href:          "https://example.com/dp/z",
		CategoryTitle: "Livros",
		StarsText:     "estrelas ilegíveis",
	})
	if !ok {
		t.Fatalf("card unexpectedly rejected")
	}
	if product.Rating.Stars != nil {
		t.Errorf("stars = %v, want nil", *product.Rating.Stars)
	}
	if product.Rating.RawStarsText != "estrelas ilegíveis" {
		t.Errorf("rawStarsText = %q, want preserved text", product.Rating.RawStarsText)
	}
}

func product(category string, rank int, title string) models.Product {
	return models.Product{
		Rank:     rank,
		Title:    title,
		Href:     "https://example.com/dp/" + title,
		Category: category,
	}
}

func TestGroupTopByCategoryTruncatesAndSorts(t *testing.T) {
	products := []models.Product{
		product("livros", 3, "c"),
		product("livros", 1, "a"),
		product("livros", 4, "d"),
		product("livros", 2, "b"),
		product("games", 2, "g2"),
		product("games", 1, "g1"),
	}

	grouped := GroupTopByCategory(products, 3)

	livros := grouped["livros"]
	if len(livros) != 3 {
		t.Fatalf("len(livros) = %d, want 3", len(livros))
	}
	for i, want := range []string{"a", "b", "c"} {
		if livros[i].Title != want {
			t.Errorf("livros[%d] = %q, want %q", i, livros[i].Title, want)
		}
	}
	for i := 1; i < len(livros); i++ {
		if livros[i-1].Rank > livros[i].Rank {
			t.Errorf("livros not sorted ascending by rank at %d", i)
		}
	}

	if len(grouped["games"]) != 2 {
		t.Errorf("len(games) = %d, want 2", len(grouped["games"]))
	}
}

func TestGroupTopByCategoryStableOnEqualRanks(t *testing.T) {
	// Misread carousel badges can repeat a rank. Equal ranks must keep
	// their input order or output would differ between runs.
	products := []models.Product{
		product("livros", 1, "first"),
		product("livros", 1, "second"),
		product("livros", 1, "third"),
	}

	grouped := GroupTopByCategory(products, 10)
	livros := grouped["livros"]
	if len(livros) != 3 {
		t.Fatalf("len = %d, want 3", len(livros))
	}
	for i, want := range []string{"first", "second", "third"} {
		if livros[i].Title != want {
			t.Errorf("livros[%d] = %q, want %q (stability violated)", i, livros[i].Title, want)
		}
	}
}

func TestGroupTopByCategoryDropsUncategorized(t *testing.T) {
	grouped := GroupTopByCategory([]models.Product{
		product("", 1, "orphan"),
		product("livros", 1, "kept"),
	}, 3)

	if len(grouped) != 1 {
		t.Fatalf("len(grouped) = %d, want 1", len(grouped))
	}
	if _, ok := grouped[""]; ok {
		t.Errorf("empty category key must not exist")
	}
}

func TestBuildProductsDropsRejectedCards(t *testing.T) {
	cards := []models.ScrapedCard{
		{Rank: 1, Title: "ok", Href: "https://example.com/dp/1", CategoryTitle: "Livros"},
		{Rank: 2, Title: "", Href: "https://example.com/dp/2", CategoryTitle: "Livros"},
		{Rank: 3, Title: "also ok", Href: "https://example.com/dp/3", CategoryTitle: "Livros"},
	}

	products := BuildProducts(cards)
	if len(products) != 2 {
		t.Fatalf("len(products) = %d, want 2", len(products))
	}
}

func TestCategoryOrder(t *testing.T) {
	order := CategoryOrder([]string{"Eletrônicos", "Games e Consoles"})
	want := []string{"eletronicos", "games-e-consoles"}
	if len(order) != len(want) {
		t.Fatalf("len = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
