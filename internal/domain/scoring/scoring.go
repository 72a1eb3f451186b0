// Package scoring maps interaction events to reward deltas and experience to levels.
package scoring

import (
	"fmt"

	"github.com/okian/eduquest/internal/domain/model"
)

// ExperiencePerLevel is the experience needed to advance one level.
const ExperiencePerLevel = 100

// Rule computes a delta as Fixed + base × PerBase.
type Rule struct {
	Fixed   model.Delta
	PerBase model.Delta
}

func (r Rule) apply(base int) model.Delta {
	if base < 0 {
		base = 0
	}
	return model.Delta{
		Credits:    r.Fixed.Credits + base*r.PerBase.Credits,
		Experience: r.Fixed.Experience + base*r.PerBase.Experience,
		Points:     r.Fixed.Points + base*r.PerBase.Points,
	}
}

// DefaultRules returns the reward table.
func DefaultRules() map[model.Kind]Rule {
	return map[model.Kind]Rule{
		model.KindChatMessageSent:   {Fixed: model.Delta{Credits: 5, Experience: 10, Points: 5}},
		model.KindQuestionAnswered:  {Fixed: model.Delta{Credits: 10, Experience: 20, Points: 10}},
		model.KindActivityCompleted: {PerBase: model.Delta{Credits: 1, Experience: 2, Points: 1}},
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRule overrides the rule for one kind.
func WithRule(kind model.Kind, rule Rule) Option {
	return func(e *Engine) {
		if kind != "" {
			e.rules[kind] = rule
		}
	}
}

// Engine holds the reward table. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	rules map[model.Kind]Rule
}

// New creates an Engine with the default rules and any overrides.
func New(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Delta returns the reward for an event kind. base is the activity's points
// for activity_completed and ignored by fixed rules. Unknown kinds return a
// zero delta with ErrUnknownEventKind.
func (e *Engine) Delta(kind model.Kind, base int) (model.Delta, error) {
	rule, ok := e.rules[kind]
	if !ok {
		return model.Delta{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}
	return rule.apply(base), nil
}

// Level returns the level for an experience total.
func Level(experience int) int {
	if experience < 0 {
		experience = 0
	}
	return experience/ExperiencePerLevel + 1
}
