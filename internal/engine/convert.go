package engine

import (
	"fmt"
	"math"
)

// ConvertXP turns an XP amount into screen-time minutes using the trust
// multiplier, rounding half away from zero. XP must be non-negative.
func ConvertXP(xp int, multiplier float64) (int, error) {
	if xp < 0 {
		return 0, fmt.Errorf("%w: xp must be non-negative, got %d", ErrInvalidAmount, xp)
	}
	return int(math.Round(float64(xp) * multiplier)), nil
}
