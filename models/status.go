package models

import "fmt"

// OrderStatus is the lifecycle state of an order. The string values are
// persisted and shared with other services, including the mixed-case
// "Completed".
type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	StatusProcessing      OrderStatus = "PROCESSING"
	StatusDelivered       OrderStatus = "DELIVERED"
	StatusCompleted       OrderStatus = "Completed"
	StatusCancelled       OrderStatus = "CANCELLED"
)

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	StatusAwaitingPayment: {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusDelivered, StatusCancelled},
	// a second delivery appends another artifact
	StatusDelivered: {StatusDelivered, StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is one of the known states.
func (s OrderStatus) Valid() bool {
	_, ok := orderStateTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderStateTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the table allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderStateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionError describes a move the table does not allow.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order status cannot change from %s to %s", e.From, e.To)
}

// CheckTransition returns a *TransitionError when from -> to is not allowed.
func CheckTransition(from, to OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
