package enums

import (
	"fmt"
	"strings"
)

// OfferStatus tracks a buyer/seller price negotiation.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusExpired   OfferStatus = "expired"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusPending,
	OfferStatusCountered,
	OfferStatusAccepted,
	OfferStatusRejected,
	OfferStatusCancelled,
	OfferStatusExpired,
}

// OpenOfferStatuses lists the non-terminal states.
var OpenOfferStatuses = []OfferStatus{OfferStatusPending, OfferStatusCountered}

func (s OfferStatus) String() string {
	return string(s)
}

func (s OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s OfferStatus) IsTerminal() bool {
	switch s {
	case OfferStatusAccepted, OfferStatusRejected, OfferStatusCancelled, OfferStatusExpired:
		return true
	}
	return false
}

func ParseOfferStatus(value string) (OfferStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOfferStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}

// OfferAction is a negotiation step requested by a seller or customer.
type OfferAction string

const (
	OfferActionAccept        OfferAction = "accept"
	OfferActionReject        OfferAction = "reject"
	OfferActionCounter       OfferAction = "counter"
	OfferActionCancel        OfferAction = "cancel"
	OfferActionAcceptCounter OfferAction = "accept_counter"
)

var validOfferActions = []OfferAction{
	OfferActionAccept,
	OfferActionReject,
	OfferActionCounter,
	OfferActionCancel,
	OfferActionAcceptCounter,
}

// SellerAction reports whether the action belongs to the listing's seller.
func (a OfferAction) SellerAction() bool {
	return a == OfferActionAccept || a == OfferActionReject || a == OfferActionCounter
}

func ParseOfferAction(value string) (OfferAction, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOfferActions {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer action %q", value)
}
