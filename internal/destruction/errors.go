package destruction

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound     = errors.New("destruction event not found")
	ErrInvalidDimensions = errors.New("invalid structure dimensions")
	ErrUnknownStructure  = errors.New("unknown structure type")
)

// EventNotFoundError carries the id that was looked up.
type EventNotFoundError struct {
	ID string
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("event not found: %s", e.ID)
}

func (e *EventNotFoundError) Is(target error) bool {
	return target == ErrEventNotFound
}
