// Package livesync keeps consumers synchronized with background extraction
// work. A channel subscribes to a change feed for one subject and, on every
// change event, re-fetches the entire current unit set and delivers it whole.
// Full snapshots are chosen over delta merging so the consumer always sees an
// internally consistent state regardless of event ordering or loss. When the
// feed drops, the channel reconnects with bounded backoff and, once attempts
// are exhausted, falls back permanently to fixed-interval polling.
package livesync

import (
	"context"

	"git.home.luguber.info/inful/brandintel/internal/model"
)

// Event is one change notification for a subject's units.
type Event struct {
	SubjectID string
	UnitType  string
	Op        string // insert|update|delete
}

// Handler receives the feed lifecycle callbacks. Callbacks may arrive from
// the transport's goroutine; implementations must be safe for that.
type Handler interface {
	// OnConnected is called when the subscription is acknowledged.
	OnConnected()
	// OnEvent is called for every change event on the subject's units.
	OnEvent(Event)
	// OnDisconnected is called once when the transport closes or errors.
	OnDisconnected(err error)
}

// Subscription is a live feed registration; Close tears it down.
type Subscription interface {
	Close() error
}

// Feed is the change-feed boundary keyed by subject id.
type Feed interface {
	Subscribe(ctx context.Context, subjectID string, h Handler) (Subscription, error)
}

// Fetcher is the point-in-time fetch-all used by both the subscription
// handler and the poller.
type Fetcher interface {
	FetchUnits(ctx context.Context, subjectID string) ([]model.ExtractionUnit, error)
}

// Publisher emits change events; Bus and NATSFeed both satisfy it, so the
// service layer is broker-agnostic.
type Publisher interface {
	Publish(Event) error
}

// StoreFetcher adapts a unit store's list call to the Fetcher boundary.
type StoreFetcher struct {
	List func(ctx context.Context, subjectID string) ([]model.ExtractionUnit, error)
}

func (f StoreFetcher) FetchUnits(ctx context.Context, subjectID string) ([]model.ExtractionUnit, error) {
	return f.List(ctx, subjectID)
}
