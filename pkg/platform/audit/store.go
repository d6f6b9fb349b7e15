package audit

import (
	"context"

	id "modzero/pkg/domain"
)

// Appender is the write side of an audit sink. Kafka sinks implement only
// this half; queryable stores implement the full Store.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Store persists audit events and supports per-user retrieval.
type Store interface {
	Appender
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
