package domain

import "fmt"

// MaxExtensions is the number of times a loan may be extended. A fixed
// business rule of the lending context, not a configuration value.
const MaxExtensions = 1

// ExtensionCount counts how often a loan has been extended. The type only
// admits 0 and 1, so an over-extended loan cannot be represented at all.
type ExtensionCount uint8

func NewExtensionCount() ExtensionCount {
	return 0
}

// ExtensionCountFrom validates a persisted value. Anything above
// MaxExtensions indicates a corrupt event payload.
func ExtensionCountFrom(v uint8) (ExtensionCount, error) {
	if v > MaxExtensions {
		return 0, fmt.Errorf("%w: %d", ErrInvalidExtensionCount, v)
	}
	return ExtensionCount(v), nil
}

// Increment returns the advanced count, or ErrExtensionLimitExceeded if the
// loan has already been extended.
func (c ExtensionCount) Increment() (ExtensionCount, error) {
	if c >= MaxExtensions {
		return c, ErrExtensionLimitExceeded
	}
	return c + 1, nil
}

func (c ExtensionCount) CanExtend() bool {
	return c < MaxExtensions
}

func (c ExtensionCount) Value() uint8 {
	return uint8(c)
}
