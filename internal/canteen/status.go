package canteen

// Orders only move forward; intermediate steps may be skipped.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusReady, StatusCompleted, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCompleted, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// Completed and cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
