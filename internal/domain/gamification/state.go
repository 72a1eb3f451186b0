// Package gamification owns per-user counters and applies reward deltas.
package gamification

import (
	"fmt"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/internal/domain/scoring"
)

// DefaultLevelUpBonus is the credit bonus granted per level gained.
const DefaultLevelUpBonus = 10

// Apply adds d to c and returns the new counters with the number of levels
// gained. Each level gained is worth bonusPerLevel extra credits. Credits and
// points never drop below zero and experience never decreases.
func Apply(c model.Counters, d model.Delta, bonusPerLevel int) (model.Counters, int) {
	prevLevel := scoring.Level(c.Experience)

	out := c
	out.Credits = floorZero(c.Credits + d.Credits)
	out.Points = floorZero(c.Points + d.Points)
	if d.Experience > 0 {
		out.Experience = c.Experience + d.Experience
	}
	out.Level = scoring.Level(out.Experience)

	gained := out.Level - prevLevel
	if gained > 0 && bonusPerLevel > 0 {
		out.Credits += bonusPerLevel * gained
	}
	if gained < 0 {
		gained = 0
	}
	return out, gained
}

// Spend removes amount credits from c. It fails with ErrInvalidAmount for
// non-positive amounts and ErrInsufficientCredits when the balance is too low;
// c is returned unchanged on failure.
func Spend(c model.Counters, amount int) (model.Counters, error) {
	if amount <= 0 {
		return c, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > c.Credits {
		return c, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, amount, c.Credits)
	}
	c.Credits = floorZero(c.Credits - amount)
	return c, nil
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
