package history

import (
	"context"
	"time"
)

// Exchange is one recorded request/response summary. Bodies are not
// persisted; the tap log is the place full payloads are surfaced.
type Exchange struct {
	// ID is a unique record identifier (UUID).
	ID string

	// ConnID is the proxy connection the exchange belongs to.
	ConnID uint64

	// Method is the HTTP method of the forwarded request.
	Method string

	// Path is the request path (no query).
	Path string

	// Status is the response status returned to the client, including
	// synthesized 400/502 responses.
	Status int

	// RequestBytes and ResponseBytes are the buffered body sizes.
	RequestBytes  int64
	ResponseBytes int64

	// StartedAt is when the request was read; CompletedAt when the
	// response was returned.
	StartedAt   time.Time
	CompletedAt time.Time
}

// Storage persists exchange records.
type Storage interface {
	// Save stores a single exchange record.
	Save(ctx context.Context, ex *Exchange) error

	// Recent returns up to limit records, most recent first.
	Recent(ctx context.Context, limit int) ([]*Exchange, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes records completed before the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases storage resources.
	Close() error
}
