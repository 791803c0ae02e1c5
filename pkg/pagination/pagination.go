package pagination

import (
	"strconv"
	"strings"
)

// Window bounds a limit/offset page request.
type Window struct {
	DefaultLimit int
	MaxLimit     int
	MaxOffset    int
}

// Params holds normalized limit/offset pagination inputs.
type Params struct {
	Limit  int
	Offset int
}

var (
	// Listings is the public catalogue page window.
	Listings = Window{DefaultLimit: 24, MaxLimit: 60, MaxOffset: 5000}
	// Offers is the negotiation history page window.
	Offers = Window{DefaultLimit: 30, MaxLimit: 80, MaxOffset: 5000}
	// Moderation is the admin review queue page window.
	Moderation = Window{DefaultLimit: 40, MaxLimit: 80, MaxOffset: 10000}
	// SavedSearches is the saved-search page window.
	SavedSearches = Window{DefaultLimit: 25, MaxLimit: 50, MaxOffset: 5000}
)

// NormalizeLimit enforces the window's default and maximum limits.
func (w Window) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return w.DefaultLimit
	}
	if limit > w.MaxLimit {
		return w.MaxLimit
	}
	return limit
}

// NormalizeOffset clamps offset into [0, MaxOffset].
func (w Window) NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > w.MaxOffset {
		return w.MaxOffset
	}
	return offset
}

// Parse reads raw query values. Unparseable values fall back to the defaults.
func (w Window) Parse(rawLimit, rawOffset string) Params {
	return Params{
		Limit:  w.NormalizeLimit(atoi(rawLimit)),
		Offset: w.NormalizeOffset(atoi(rawOffset)),
	}
}

func atoi(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}
