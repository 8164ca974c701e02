package domain

import "errors"

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindValidation            Kind = "validation"
	KindConflict              Kind = "conflict"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindInternal              Kind = "internal"
)

// Error is a classified error with a stable code and a user-facing message.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrClientNotFound  = newError(KindNotFound, "client_not_found", "client not found")
	ErrProductNotFound = newError(KindNotFound, "product_not_found", "product not found")
	ErrOrderNotFound   = newError(KindNotFound, "order_not_found", "order not found")
	ErrSurveyNotFound  = newError(KindNotFound, "survey_not_found", "survey not found")

	ErrInvalidRole         = newError(KindValidation, "invalid_role", "user is not a client")
	ErrProductInactive     = newError(KindValidation, "product_inactive", "product is inactive")
	ErrEmptyOrder          = newError(KindValidation, "empty_order", "order must contain at least one line")
	ErrInvalidQuantity     = newError(KindValidation, "invalid_quantity", "quantity must be between 1 and 2147483647")
	ErrInvalidPrice        = newError(KindValidation, "invalid_price", "unit price must be a non-negative amount with at most 2 decimals")
	ErrInvalidDeposit      = newError(KindValidation, "invalid_deposit", "deposit must be a non-negative amount with at most 2 decimals")
	ErrAmountOutOfRange    = newError(KindValidation, "amount_out_of_range", "amount exceeds 999999999999.99")
	ErrDepositExceedsTotal = newError(KindValidation, "deposit_exceeds_total", "deposit exceeds order total")
	ErrInvalidState        = newError(KindValidation, "invalid_state", "invalid order state")
	ErrInvalidInitialState = newError(KindValidation, "invalid_initial_state", "order cannot start in this state")
	ErrInvalidTransition   = newError(KindValidation, "invalid_transition", "state transition not allowed")
	ErrScoreOutOfRange     = newError(KindValidation, "score_out_of_range", "scores must be between 1 and 7")
	ErrCommentTooLong      = newError(KindValidation, "comment_too_long", "comment exceeds 255 characters")
	ErrOrderNotDelivered   = newError(KindValidation, "order_not_delivered", "order has not been delivered")

	ErrSurveyAlreadyExists = newError(KindConflict, "survey_already_exists", "order already has a survey")
	ErrConcurrentUpdate    = newError(KindConflict, "concurrent_update", "order was modified concurrently, retry")

	ErrDependencyUnavailable = newError(KindDependencyUnavailable, "dependency_unavailable", "dependency unavailable")
)

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError returns the classified error wrapped by err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
