package enums

import (
	"fmt"
	"strings"
)

type SavedSearchSort string

const (
	SortNewest    SavedSearchSort = "newest"
	SortPriceAsc  SavedSearchSort = "price_asc"
	SortPriceDesc SavedSearchSort = "price_desc"
)

// ParseSavedSearchSort defaults blank input to newest.
func ParseSavedSearchSort(value string) (SavedSearchSort, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return SortNewest, nil
	}
	for _, candidate := range []SavedSearchSort{SortNewest, SortPriceAsc, SortPriceDesc} {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("sort must be one of: newest, price_asc, price_desc")
}
