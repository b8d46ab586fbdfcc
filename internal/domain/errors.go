package domain

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of a domain error.
type Kind string

const (
	KindNotFound                  Kind = "NOT_FOUND"
	KindInsufficientStock         Kind = "INSUFFICIENT_STOCK"
	KindInvalidTransition         Kind = "INVALID_TRANSITION"
	KindCannotCancel              Kind = "CANNOT_CANCEL"
	KindInvalidPaymentMethod      Kind = "INVALID_PAYMENT_METHOD"
	KindPaymentVerificationFailed Kind = "PAYMENT_VERIFICATION_FAILED"
	KindSignatureMismatch         Kind = "SIGNATURE_MISMATCH"
	KindDuplicateTransaction      Kind = "DUPLICATE_TRANSACTION"
	KindAddressIncomplete         Kind = "ADDRESS_INCOMPLETE"
	KindEmptyCart                 Kind = "EMPTY_CART"
	KindInvalidRequest            Kind = "INVALID_REQUEST"
	KindForbidden                 Kind = "FORBIDDEN"
	KindConflict                  Kind = "CONFLICT"
	KindGatewayUnavailable        Kind = "GATEWAY_UNAVAILABLE"
	KindRefundRequired            Kind = "REFUND_REQUIRED"
)

type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound                  = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInsufficientStock         = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvalidTransition         = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrCannotCancel              = &Error{Kind: KindCannotCancel, Message: "order cannot be cancelled"}
	ErrInvalidPaymentMethod      = &Error{Kind: KindInvalidPaymentMethod, Message: "invalid payment method"}
	ErrPaymentVerificationFailed = &Error{Kind: KindPaymentVerificationFailed, Message: "payment verification failed"}
	ErrSignatureMismatch         = &Error{Kind: KindSignatureMismatch, Message: "payment signature mismatch"}
	ErrDuplicateTransaction      = &Error{Kind: KindDuplicateTransaction, Message: "transaction already processed"}
	ErrAddressIncomplete         = &Error{Kind: KindAddressIncomplete, Message: "shipping address incomplete"}
	ErrEmptyCart                 = &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrInvalidRequest            = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrForbidden                 = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrConflict                  = &Error{Kind: KindConflict, Message: "conflict"}
	ErrGatewayUnavailable        = &Error{Kind: KindGatewayUnavailable, Message: "payment gateway unavailable"}
	ErrRefundRequired            = &Error{Kind: KindRefundRequired, Message: "payment must be refunded"}
)

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %v not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

func InsufficientStock(key StockKey, available, requested int) *Error {
	d := map[string]any{
		"productId": key.ProductID,
		"available": available,
		"requested": requested,
	}
	if key.IsVariant() {
		d["variantId"] = key.VariantID
	}
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: requested %d, available %d", requested, available),
		Details: d,
	}
}

func InvalidTransition(from, to OrderStatus) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot move order from %s to %s", from, to),
		Details: map[string]any{"from": from, "to": to},
	}
}

func CannotCancel(status OrderStatus) *Error {
	return &Error{
		Kind:    KindCannotCancel,
		Message: fmt.Sprintf("order in status %s cannot be cancelled", status),
		Details: map[string]any{"status": status},
	}
}

func AddressIncomplete(missing []string) *Error {
	return &Error{
		Kind:    KindAddressIncomplete,
		Message: "shipping address incomplete",
		Details: map[string]any{"missing": missing},
	}
}

func InvalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func InvalidPaymentMethod(m PaymentMethod) *Error {
	return &Error{
		Kind:    KindInvalidPaymentMethod,
		Message: fmt.Sprintf("payment method %q is not supported", m),
		Details: map[string]any{"paymentMethod": m},
	}
}

// RefundRequired reports money taken for an order that will not be fulfilled.
func RefundRequired(orderID any, externalTransactionID string) *Error {
	return &Error{
		Kind:    KindRefundRequired,
		Message: "payment settled for a cancelled order and must be refunded",
		Details: map[string]any{"orderId": orderID, "externalTransactionId": externalTransactionID},
	}
}

// VerificationFailed never carries the provider's raw response.
func VerificationFailed(reason string, cause error) *Error {
	return &Error{Kind: KindPaymentVerificationFailed, Message: "payment verification failed: " + reason, Err: cause}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
