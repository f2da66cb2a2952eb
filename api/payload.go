package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bestsellers/models"
)

// PayloadError is a refresh-body rejection carried back to the caller as a
// human-readable reason. Validation is all-or-nothing: a payload is either
// accepted unchanged or rejected before anything reaches storage.
type PayloadError struct {
	Reason string
}

func (e *PayloadError) Error() string {
	return e.Reason
}

func payloadErrorf(format string, args ...any) error {
	return &PayloadError{Reason: fmt.Sprintf(format, args...)}
}

// ExtractRefreshPayload validates an externally-submitted refresh body into
// the grouped category-map shape. The caller asserts the grouping is
// already correct, so the pair is passed through without re-grouping or
// re-truncation. Bare product arrays are rejected: ungrouped submissions
// are not an accepted refresh shape.
func ExtractRefreshPayload(body []byte) (models.ProductsByCategory, []string, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil, payloadErrorf("Missing request body.")
	}
	if trimmed[0] == '[' {
		return nil, nil, payloadErrorf("Bare product arrays are not accepted; submit a grouped 'categories' object.")
	}

	var envelope struct {
		Categories    json.RawMessage `json:"categories"`
		CategoryOrder json.RawMessage `json:"categoryOrder"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, nil, payloadErrorf("Invalid JSON body.")
	}

	categories, err := extractCategories(envelope.Categories)
	if err != nil {
		return nil, nil, err
	}

	order, err := extractCategoryOrder(envelope.CategoryOrder)
	if err != nil {
		return nil, nil, err
	}

	return categories, order, nil
}

func extractCategories(raw json.RawMessage) (models.ProductsByCategory, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, payloadErrorf("Body must contain a valid 'categories' object.")
	}
	if trimmed[0] == '[' {
		return nil, payloadErrorf("'categories' must be an object keyed by category slug, not an array.")
	}

	var rawCategories map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &rawCategories); err != nil {
		return nil, payloadErrorf("Body must contain a valid 'categories' object.")
	}

	// Each value is checked as a raw token first: a typed decode alone
	// would accept null for a category by leaving the slice nil.
	categories := make(models.ProductsByCategory, len(rawCategories))
	for slug, rawProducts := range rawCategories {
		value := bytes.TrimLeft(rawProducts, " \t\r\n")
		if len(value) == 0 || value[0] != '[' {
			return nil, payloadErrorf("Category %q must be an array of products.", slug)
		}

		var products []models.Product
		if err := json.Unmarshal(value, &products); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && strings.HasSuffix(typeErr.Field, "rank") {
				return nil, payloadErrorf("Category %q product 'rank' must be an integer.", slug)
			}
			return nil, payloadErrorf("Category %q must be an array of valid products.", slug)
		}

		for i, product := range products {
			if err := validateProduct(product); err != nil {
				return nil, payloadErrorf("Category %q product %d is invalid: %v.", slug, i, err)
			}
		}
		categories[slug] = products
	}
	return categories, nil
}

func extractCategoryOrder(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, payloadErrorf("Body must contain a 'categoryOrder' array of strings.")
	}

	var order []string
	if err := json.Unmarshal(trimmed, &order); err != nil {
		return nil, payloadErrorf("'categoryOrder' must be an array of strings.")
	}
	return order, nil
}

// validateProduct is the structural Product predicate applied to unknown
// input. Rank being an integer is already enforced by the typed decode;
// what remains are the identity fields.
func validateProduct(p models.Product) error {
	if p.Title == "" {
		return fmt.Errorf("missing title")
	}
	if p.Href == "" {
		return fmt.Errorf("missing href")
	}
	return nil
}
