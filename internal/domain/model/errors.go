package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEvent is returned for events that fail validation at creation.
var ErrInvalidEvent = errors.New("invalid event")

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validatePayload, Event{})
	return v
}

// validatePayload enforces the fields each known kind depends on.
func validatePayload(sl validator.StructLevel) {
	e, ok := sl.Current().Interface().(Event)
	if !ok {
		return
	}
	switch e.Kind {
	case KindQuestionAnswered:
		if strings.TrimSpace(e.Payload.QuestionID) == "" {
			sl.ReportError(e.Payload.QuestionID, "QuestionID", "question_id", "required_for_kind", string(e.Kind))
		}
		if strings.TrimSpace(e.Payload.Category) == "" {
			sl.ReportError(e.Payload.Category, "Category", "category", "required_for_kind", string(e.Kind))
		}
	case KindActivityCompleted:
		if e.Payload.ActivityID <= 0 {
			sl.ReportError(e.Payload.ActivityID, "ActivityID", "activity_id", "required_for_kind", string(e.Kind))
		}
	default:
		// chat messages and unknown kinds carry no required fields
	}
}

func invalidEvent(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidEvent, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
