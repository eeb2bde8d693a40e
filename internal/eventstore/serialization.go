package eventstore

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/cozy-corner/library-lending/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalEvent serializes a domain event into its stored payload.
func MarshalEvent(event domain.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// UnmarshalEvent rebuilds a domain event from its stored type and payload.
func UnmarshalEvent(eventType string, data []byte) (domain.DomainEvent, error) {
	switch eventType {
	case domain.EventTypeBookLoaned:
		var e domain.BookLoaned
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeLoanExtended:
		var e domain.LoanExtended
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeBookReturned:
		var e domain.BookReturned
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeLoanBecameOverdue:
		var e domain.LoanBecameOverdue
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
}
