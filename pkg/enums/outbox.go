package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events and
// prefixes the Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateListing OutboxAggregateType = "listing"
	AggregateOffer   OutboxAggregateType = "offer"
)

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventListingReserved  OutboxEventType = "listing_reserved"
	EventListingReleased  OutboxEventType = "listing_released"
	EventListingSold      OutboxEventType = "listing_sold"
	EventListingModerated OutboxEventType = "listing_moderated"
	EventOfferCreated     OutboxEventType = "offer_created"
	EventOfferUpdated     OutboxEventType = "offer_updated"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventListingReserved, EventListingReleased, EventListingSold, EventListingModerated,
		EventOfferCreated, EventOfferUpdated:
		return true
	}
	return false
}
