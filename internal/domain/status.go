package domain

import "fmt"

// Status enumerates lifecycle states shared by bugs and bug reports.
type Status string

const (
	StatusNew           Status = "new"
	StatusToBeDiscussed Status = "to_be_discussed"
	StatusToVerify      Status = "to_verify"
	StatusCantReproduce Status = "cant_reproduce"
	StatusReturned      Status = "returned"
	StatusVerified      Status = "verified"
	StatusClosed        Status = "closed"
)

var statuses = []Status{
	StatusNew,
	StatusToBeDiscussed,
	StatusToVerify,
	StatusCantReproduce,
	StatusReturned,
	StatusVerified,
	StatusClosed,
}

// Statuses returns every legal status in declaration order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether an item in this status is no longer active.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusClosed
}

// ParseStatus converts a raw value into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Priority enumerates bug urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityMajor    Priority = "major"
	PriorityNormal   Priority = "normal"
	PriorityMinor    Priority = "minor"
)

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityMajor, PriorityNormal, PriorityMinor:
		return true
	}
	return false
}

// ParsePriority converts a raw value into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return p, nil
}
