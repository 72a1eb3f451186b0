// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the type of an interaction event.
type Kind string

// Known event kinds.
const (
	KindQuestionAnswered  Kind = "question_answered"
	KindActivityCompleted Kind = "activity_completed"
	KindChatMessageSent   Kind = "chat_message_sent"
)

// Question categories inspected by the insight engine.
const (
	CategoryVocational    = "vocational"
	CategoryReinforcement = "reinforcement"
	CategoryEmotional     = "emotional"
)

// Known reports whether k has a reward rule.
func (k Kind) Known() bool {
	switch k {
	case KindQuestionAnswered, KindActivityCompleted, KindChatMessageSent:
		return true
	default:
		return false
	}
}

// Payload carries kind-specific event data.
type Payload struct {
	QuestionID string `json:"question_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Answer     string `json:"answer,omitempty"`
	ActivityID int    `json:"activity_id,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Event is an immutable record of one user interaction.
type Event struct {
	ID      string  `json:"event_id" validate:"required"`
	UserID  string  `json:"user_id" validate:"required"`
	Kind    Kind    `json:"kind" validate:"required"`
	Payload Payload `json:"payload"`
	// EmotionalVariability is the 0-10 self-report attached to emotional answers.
	EmotionalVariability *float64  `json:"emotional_variability,omitempty" validate:"omitempty,gte=0,lte=10"`
	TS                   time.Time `json:"ts"`
}

// EventOption customises an event built by NewEvent.
type EventOption func(*Event)

// WithEventID sets a caller-supplied id used for idempotency.
func WithEventID(id string) EventOption {
	return func(e *Event) {
		if id != "" {
			e.ID = id
		}
	}
}

// WithTimestamp sets the event time.
func WithTimestamp(ts time.Time) EventOption {
	return func(e *Event) {
		if !ts.IsZero() {
			e.TS = ts.UTC()
		}
	}
}

// WithEmotionalVariability attaches an emotional variability reading.
func WithEmotionalVariability(v float64) EventOption {
	return func(e *Event) {
		e.EmotionalVariability = &v
	}
}

// NewEvent builds and validates an event. Malformed events are rejected with
// ErrInvalidEvent.
func NewEvent(userID string, kind Kind, payload Payload, opts ...EventOption) (Event, error) {
	e := Event{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
		TS:      time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Validate checks the event shape for its kind.
func (e Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return invalidEvent(err)
	}
	return nil
}

// IsEmotional reports whether e is an emotional question answer.
func (e Event) IsEmotional() bool {
	return e.Kind == KindQuestionAnswered && equalFold(e.Payload.Category, CategoryEmotional)
}
