package objects

import "fmt"

type (
	// NotFoundError is returned when a collection lookup references a key the
	// server does not have.
	NotFoundError struct {
		Kind string
		Key  string
	}

	// AlreadyExistsError is returned when adding an object under a key that
	// is already present in the collection.
	AlreadyExistsError struct {
		Kind string
		Key  string
	}

	// StaleStateError is returned when an operation requires server identity
	// the object does not have: altering or dropping an object that was never
	// created, or touching one that has been dropped.
	StaleStateError struct {
		Kind   string
		Key    string
		Op     string
		Reason string
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Key)
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Key)
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %q: %s", e.Op, e.Kind, e.Key, e.Reason)
}
