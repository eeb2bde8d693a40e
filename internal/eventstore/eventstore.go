package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cozy-corner/library-lending/internal/domain"
)

var (
	// ErrConcurrencyConflict is returned when another writer advanced the
	// aggregate past the expected version. Callers resolve it by reloading,
	// replaying and re-deciding; there is no locking.
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")

	// ErrInvalidVersion is returned for a negative expected version.
	ErrInvalidVersion = errors.New("invalid expected version")

	// ErrUnknownEventType is returned when a stored event cannot be mapped
	// back to a domain event.
	ErrUnknownEventType = errors.New("unknown event type")
)

// AggregateTypeLoan is the aggregate type recorded with every loan event.
const AggregateTypeLoan = "Loan"

// StoredEvent is the persisted representation of a domain event. The
// sequence number orders events globally across aggregates; the aggregate
// version orders them within one aggregate and carries the concurrency check.
type StoredEvent struct {
	SequenceNumber   int64     `db:"sequence_number"`
	AggregateID      uuid.UUID `db:"aggregate_id"`
	AggregateVersion int       `db:"aggregate_version"`
	AggregateType    string    `db:"aggregate_type"`
	EventType        string    `db:"event_type"`
	EventData        []byte    `db:"event_data"`
	OccurredAt       time.Time `db:"occurred_at"`
	RecordedAt       time.Time `db:"recorded_at"`
}

// Store is the append-only event log contract. Appended events are never
// updated or deleted; corrections are new compensating events.
type Store interface {
	// Append atomically writes the batch with strictly sequential versions
	// following expectedVersion, or writes nothing and returns
	// ErrConcurrencyConflict if the aggregate has moved on.
	Append(ctx context.Context, aggregateID uuid.UUID, expectedVersion int, events []domain.DomainEvent) error

	// Load returns the complete version-ordered history, empty for an
	// unknown aggregate.
	Load(ctx context.Context, aggregateID uuid.UUID) ([]domain.DomainEvent, error)

	// CurrentVersion returns the highest version for the aggregate, 0 when
	// no events exist.
	CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error)

	// StreamAll pages through all events in global sequence order, for audit
	// queries and full read-model rebuilds.
	StreamAll(ctx context.Context, fromSequence int64, limit int) ([]StoredEvent, error)
}
