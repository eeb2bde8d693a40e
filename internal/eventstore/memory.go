package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cozy-corner/library-lending/internal/domain"
)

// MemoryStore is an in-memory Store with the same concurrency contract as
// the Postgres implementation. Used by unit tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	streams  map[uuid.UUID][]domain.DomainEvent
	log      []StoredEvent
	sequence int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[uuid.UUID][]domain.DomainEvent),
	}
}

func (s *MemoryStore) Append(ctx context.Context, aggregateID uuid.UUID, expectedVersion int, events []domain.DomainEvent) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Serialize up front so a marshal failure cannot leave a partial batch.
	payloads := make([][]byte, len(events))
	for i, event := range events {
		payload, err := MarshalEvent(event)
		if err != nil {
			return err
		}
		payloads[i] = payload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.streams[aggregateID]) != expectedVersion {
		return ErrConcurrencyConflict
	}

	recordedAt := time.Now().UTC()
	for i, event := range events {
		s.sequence++
		s.log = append(s.log, StoredEvent{
			SequenceNumber:   s.sequence,
			AggregateID:      aggregateID,
			AggregateVersion: expectedVersion + i + 1,
			AggregateType:    AggregateTypeLoan,
			EventType:        event.EventType(),
			EventData:        payloads[i],
			OccurredAt:       event.OccurredAt(),
			RecordedAt:       recordedAt,
		})
		s.streams[aggregateID] = append(s.streams[aggregateID], event)
	}

	return nil
}

func (s *MemoryStore) Load(ctx context.Context, aggregateID uuid.UUID) ([]domain.DomainEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	events := make([]domain.DomainEvent, len(stream))
	copy(events, stream)
	return events, nil
}

func (s *MemoryStore) CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.streams[aggregateID]), nil
}

func (s *MemoryStore) StreamAll(ctx context.Context, fromSequence int64, limit int) ([]StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredEvent
	for _, stored := range s.log {
		if stored.SequenceNumber <= fromSequence {
			continue
		}
		out = append(out, stored)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
