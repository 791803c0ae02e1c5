package enums

import (
	"fmt"
	"strings"
)

// ListingStatus is the sale availability lifecycle of a listing.
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusReserved ListingStatus = "reserved"
	ListingStatusArchived ListingStatus = "archived"
	ListingStatusSold     ListingStatus = "sold"
)

var validListingStatuses = []ListingStatus{
	ListingStatusActive,
	ListingStatusReserved,
	ListingStatusArchived,
	ListingStatusSold,
}

func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical listing status enum.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// OwnerSettable reports whether a seller may move a listing into this status directly.
func (s ListingStatus) OwnerSettable() bool {
	return s == ListingStatusActive || s == ListingStatusArchived
}

// ParseListingStatus converts the raw string to ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validListingStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
