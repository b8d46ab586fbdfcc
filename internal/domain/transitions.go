package domain

// statusTransitions holds the moves allowed through a general status update.
// PENDING is left out on purpose: it only moves through payment reconciliation.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusConfirmed: {StatusShipped, StatusCancelled, StatusDelayed},
	StatusDelayed:   {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusReturned},
	StatusReturned:  {},
	StatusCancelled: {},
}

var paymentTransitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusConfirmed, StatusCancelled},
}

func contains(list []OrderStatus, s OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a privileged status update may move an order
// from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return contains(statusTransitions[from], to)
}

// CanReconcile reports whether payment reconciliation may move an order
// from one status to another.
func CanReconcile(from, to OrderStatus) bool {
	return contains(paymentTransitions[from], to)
}
