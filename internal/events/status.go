package events

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsBookable reports whether tickets may be reserved in this state.
func (s Status) IsBookable() bool {
	return s == StatusActive
}

// CanTransitionTo reports whether an event may move from s to next.
// Cancelled and completed are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusActive && (next == StatusCancelled || next == StatusCompleted)
}
