package listings

import (
	"errors"
	"fmt"
	"slices"

	dbtypes "github.com/angelmondragon/archivesurmer-backend/pkg/db/types"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

var (
	// ErrNotPurchasable reports a listing that is not active and approved.
	ErrNotPurchasable = errors.New("listing is not available for purchase")
	// ErrNoMedia reports an approval attempt on a listing without usable media.
	ErrNoMedia = errors.New("listing has no valid media to approve")
	// ErrInvalidTransition reports a status edge the lifecycle does not allow.
	ErrInvalidTransition = errors.New("listing status transition not allowed")
)

// transitions lists every permitted status edge, keyed by target, with the
// statuses a guarded update may find when applying it. Every guard below is
// derived from this table.
var transitions = map[enums.ListingStatus][]enums.ListingStatus{
	enums.ListingStatusReserved: {enums.ListingStatusActive},
	enums.ListingStatusSold:     {enums.ListingStatusActive, enums.ListingStatusReserved},
	enums.ListingStatusActive:   {enums.ListingStatusReserved, enums.ListingStatusArchived},
	enums.ListingStatusArchived: {enums.ListingStatusActive, enums.ListingStatusReserved},
}

var ownerSettable = []enums.ListingStatus{enums.ListingStatusActive, enums.ListingStatusArchived}

// CanTransition reports whether from → to is a lifecycle edge.
func CanTransition(from, to enums.ListingStatus) bool {
	return slices.Contains(transitions[to], from)
}

// Sources returns the statuses an update towards to may start from. When
// within is given the result is narrowed to those statuses.
func Sources(to enums.ListingStatus, within ...enums.ListingStatus) []enums.ListingStatus {
	var out []enums.ListingStatus
	for _, from := range transitions[to] {
		if len(within) == 0 || slices.Contains(within, from) {
			out = append(out, from)
		}
	}
	return out
}

// OwnerFrom is the guard for a seller setting next. Re-sending the current
// status is accepted as a no-op.
func OwnerFrom(next enums.ListingStatus) []enums.ListingStatus {
	return append(Sources(next, ownerSettable...), next)
}

// checkGuard rejects a guard that would let an update cross an edge missing
// from the table. Same-status writes are allowed for owner no-ops.
func checkGuard(from []enums.ListingStatus, to enums.ListingStatus) error {
	for _, status := range from {
		if status != to && !CanTransition(status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, to)
		}
	}
	return nil
}

// CheckPurchasable returns ErrNotPurchasable unless status is active and
// moderation is approved.
func CheckPurchasable(status enums.ListingStatus, moderation enums.ModerationStatus) error {
	if status != enums.ListingStatusActive || moderation != enums.ModerationApproved {
		return ErrNotPurchasable
	}
	return nil
}

// ApprovalMedia picks the media an approval publishes: submitted media_urls
// when present, otherwise the legacy image_url. The result is canonical and
// non-empty, with the primary image first.
func ApprovalMedia(submitted dbtypes.URLList, imageURL string) (dbtypes.URLList, string, error) {
	source := []string(submitted)
	if len(dbtypes.NormalizeURLs(source)) == 0 && imageURL != "" {
		source = []string{imageURL}
	}
	approved := dbtypes.NormalizeURLs(source)
	if len(approved) == 0 {
		return nil, "", ErrNoMedia
	}
	return approved, approved.First(), nil
}

// StatusAfterApproval keeps terminal and in-flight statuses; anything else
// becomes active.
func StatusAfterApproval(current enums.ListingStatus) enums.ListingStatus {
	switch current {
	case enums.ListingStatusSold, enums.ListingStatusReserved, enums.ListingStatusArchived:
		return current
	}
	return enums.ListingStatusActive
}

// StatusAfterRejection archives a listing that could otherwise still be bought.
func StatusAfterRejection(current enums.ListingStatus) enums.ListingStatus {
	if current == enums.ListingStatusActive || current == enums.ListingStatusReserved {
		return enums.ListingStatusArchived
	}
	return current
}
