// Package parser holds the locale-aware text and field parsers for scraped
// bestseller markup. Amazon.com.br formats numbers in Brazilian-Portuguese
// convention: "." is the thousands separator and "," the decimal separator.
//
// Every function here is pure and total. Partial or garbled scraped text is
// the common case, not an error, so absence is reported through an ok bool
// or a nil pointer instead of an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bestsellers/models"
)

// Currency is the fixed currency code attached to every parsed price.
const Currency = "BRL"

var (
	nonSlugRuns  = regexp.MustCompile(`[^a-z0-9]+`)
	firstDecimal = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	nonNumeric   = regexp.MustCompile(`[^\d,.-]`)
	nonDigit     = regexp.MustCompile(`\D`)

	// NFD decomposition followed by dropping combining marks strips
	// diacritics: "Eletrônicos" -> "Eletronicos".
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeText collapses runs of whitespace to a single space and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SlugifyCategory derives an attribute-safe slug from a human-readable
// category title: diacritics stripped, lowercased, runs of anything outside
// [a-z0-9] collapsed to "-", no leading or trailing "-". Idempotent.
func SlugifyCategory(title string) string {
	s := NormalizeText(title)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)
	s = nonSlugRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ParseNumberFromText extracts a number from pt-BR formatted text such as
// "R$ 1.234,56". Thousands dots are dropped and the decimal comma becomes a
// decimal point. The ok result is false when no finite number remains.
func ParseNumberFromText(raw string) (float64, bool) {
	text := NormalizeText(raw)
	if text == "" {
		return 0, false
	}

	cleaned := nonNumeric.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParsePrice parses a scraped price string into Money. The original text is
// preserved in Raw for audit. Returns nil when the text has no usable
// number; a partial Money is never produced.
func ParsePrice(raw string) *models.Money {
	value, ok := ParseNumberFromText(raw)
	if !ok {
		return nil
	}
	return &models.Money{
		Raw:      NormalizeText(raw),
		Currency: Currency,
		Value:    value,
	}
}

// ParseStars extracts the first decimal number from star text like
// "4,7 de 5 estrelas". The ok result is false when no numeric run is found.
func ParseStars(raw string) (float64, bool) {
	match := firstDecimal.FindString(NormalizeText(raw))
	if match == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseReviewCount parses review-count text like "1.234 avaliações" by
// stripping everything that is not a digit. The ok result is false when no
// digits remain.
func ParseReviewCount(raw string) (int, bool) {
	digits := nonDigit.ReplaceAllString(NormalizeText(raw), "")
	if digits == "" {
		return 0, false
	}

	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return value, true
}
