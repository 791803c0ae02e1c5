package enums

import (
	"fmt"
	"strings"
)

// ModerationStatus is the editorial approval gate, independent of ListingStatus.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

var validModerationStatuses = []ModerationStatus{
	ModerationPending,
	ModerationApproved,
	ModerationRejected,
}

func (s ModerationStatus) String() string {
	return string(s)
}

func (s ModerationStatus) IsValid() bool {
	for _, candidate := range validModerationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseModerationStatus(value string) (ModerationStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validModerationStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid moderation status %q", value)
}

// ModerationDecision is the action a moderator takes on a listing.
type ModerationDecision string

const (
	ModerationDecisionApprove ModerationDecision = "approve"
	ModerationDecisionReject  ModerationDecision = "reject"
)

func ParseModerationDecision(value string) (ModerationDecision, error) {
	switch ModerationDecision(strings.ToLower(strings.TrimSpace(value))) {
	case ModerationDecisionApprove:
		return ModerationDecisionApprove, nil
	case ModerationDecisionReject:
		return ModerationDecisionReject, nil
	}
	return "", fmt.Errorf("invalid moderation decision %q", value)
}
