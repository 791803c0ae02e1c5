package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests
// and the sqlite development mode.
func All() []any {
	return []any{
		&SellerProfile{},
		&CustomerProfile{},
		&Listing{},
		&Offer{},
		&WishlistItem{},
		&SavedSearch{},
		&ListingStatusEvent{},
		&OutboxEvent{},
	}
}
