package api

import (
	"errors"
	"net/http"

	"github.com/okian/eduquest/internal/adapters/mq/queue"
	"github.com/okian/eduquest/internal/adapters/repository"
	"github.com/okian/eduquest/internal/domain/catalog"
	"github.com/okian/eduquest/internal/domain/gamification"
	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/internal/domain/question"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	errMissingUser    = errors.New("missing user_id")
	errInvalidClaims  = errors.New("invalid token payload")
	errMissingSubject = errors.New("token subject missing")
)

// OpError records the handler operation that failed, an optional kind used
// for status mapping and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op
	}
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// classify maps an error chain to an HTTP status and error code.
func classify(err error) (status int, code string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, gamification.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, catalog.ErrActivityNotFound):
		return http.StatusNotFound, "activity_not_found"
	case errors.Is(err, question.ErrQuestionNotFound):
		return http.StatusNotFound, "question_not_found"
	case errors.Is(err, catalog.ErrActivityInactive):
		return http.StatusConflict, "activity_inactive"
	case errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict, "user_exists"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, question.ErrUnknownLevel),
		errors.Is(err, gamification.ErrInvalidAmount):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
