package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cozy-corner/library-lending/internal/domain"
)

// uniqueViolation is the Postgres error code raised when two writers race
// past the in-transaction version check onto the same (aggregate_id, version).
const uniqueViolation = "23505"

// PostgresStore persists events in a single append-only table with a
// bigserial global sequence and a unique (aggregate_id, aggregate_version)
// constraint as the second line of concurrency defense.
type PostgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("library-lending/eventstore"),
	}
}

func (s *PostgresStore) Append(ctx context.Context, aggregateID uuid.UUID, expectedVersion int, events []domain.DomainEvent) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	if len(events) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.GetContext(ctx, &currentVersion, `
		SELECT COALESCE(MAX(aggregate_version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID)
	if err != nil {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	query := `
		INSERT INTO events (aggregate_id, aggregate_version, aggregate_type, event_type, event_data, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	recordedAt := time.Now().UTC()
	for i, event := range events {
		payload, marshalErr := MarshalEvent(event)
		if marshalErr != nil {
			return marshalErr
		}

		_, err = tx.ExecContext(ctx, query,
			aggregateID,
			expectedVersion+i+1,
			AggregateTypeLoan,
			event.EventType(),
			payload,
			event.OccurredAt(),
			recordedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *PostgresStore) Load(ctx context.Context, aggregateID uuid.UUID) ([]domain.DomainEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var rows []StoredEvent
	err := s.db.SelectContext(ctx, &rows, `
		SELECT sequence_number, aggregate_id, aggregate_version, aggregate_type, event_type, event_data, occurred_at, recorded_at
		FROM events
		WHERE aggregate_id = $1
		ORDER BY aggregate_version ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]domain.DomainEvent, 0, len(rows))
	for _, row := range rows {
		event, err := UnmarshalEvent(row.EventType, row.EventData)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

func (s *PostgresStore) CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.current_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var version int
	err := s.db.GetContext(ctx, &version, `
		SELECT COALESCE(MAX(aggregate_version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID)
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}

	return version, nil
}

func (s *PostgresStore) StreamAll(ctx context.Context, fromSequence int64, limit int) ([]StoredEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.stream_all",
		trace.WithAttributes(
			attribute.Int64("from.sequence", fromSequence),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	var rows []StoredEvent
	err := s.db.SelectContext(ctx, &rows, `
		SELECT sequence_number, aggregate_id, aggregate_version, aggregate_type, event_type, event_data, occurred_at, recorded_at
		FROM events
		WHERE sequence_number > $1
		ORDER BY sequence_number ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}

	span.SetAttributes(attribute.Int("events.streamed", len(rows)))
	return rows, nil
}
