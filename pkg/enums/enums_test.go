package enums

import "testing"

func TestOfferStatusTerminal(t *testing.T) {
	terminal := map[OfferStatus]bool{
		OfferStatusPending:   false,
		OfferStatusCountered: false,
		OfferStatusAccepted:  true,
		OfferStatusRejected:  true,
		OfferStatusCancelled: true,
		OfferStatusExpired:   true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s: expected terminal=%v got %v", status, want, got)
		}
	}
	for _, open := range OpenOfferStatuses {
		if open.IsTerminal() {
			t.Fatalf("%s listed as open but terminal", open)
		}
	}
}

func TestParseListingStatus(t *testing.T) {
	got, err := ParseListingStatus(" Archived ")
	if err != nil || got != ListingStatusArchived {
		t.Fatalf("expected archived, got %q err=%v", got, err)
	}
	if _, err := ParseListingStatus("deleted"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if ListingStatusReserved.OwnerSettable() || ListingStatusSold.OwnerSettable() {
		t.Fatal("reserved/sold must not be owner settable")
	}
}

func TestParseOfferAction(t *testing.T) {
	action, err := ParseOfferAction("ACCEPT_COUNTER")
	if err != nil || action != OfferActionAcceptCounter {
		t.Fatalf("expected accept_counter, got %q err=%v", action, err)
	}
	if action.SellerAction() {
		t.Fatal("accept_counter is a customer action")
	}
	if !OfferActionCounter.SellerAction() {
		t.Fatal("counter is a seller action")
	}
	if _, err := ParseOfferAction("withdraw"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestParseSavedSearchSort(t *testing.T) {
	if got, _ := ParseSavedSearchSort(""); got != SortNewest {
		t.Fatalf("expected newest default, got %q", got)
	}
	if _, err := ParseSavedSearchSort("cheapest"); err == nil {
		t.Fatal("expected error for unknown sort")
	}
}
