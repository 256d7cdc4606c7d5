package badge

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/valuablehost/hostpulse/internal/config"
	"github.com/valuablehost/hostpulse/internal/models"
)

// Engine errors
var (
	ErrInvalidOverride = errors.New("invalid badge override: must be auto, on or off")
	ErrInvalidCriteria = errors.New("invalid badge criteria")
)

// Criteria holds the thresholds for automatic badge eligibility
type Criteria struct {
	MinReviews int
	MinRating  decimal.Decimal
	WindowDays int
}

// DefaultCriteria returns the published badge rules: at least 10
// reviews averaging 4.8 or better over the trailing 90 days.
func DefaultCriteria() Criteria {
	return Criteria{
		MinReviews: 10,
		MinRating:  decimal.RequireFromString("4.8"),
		WindowDays: 90,
	}
}

// CriteriaFromConfig parses badge criteria from configuration
func CriteriaFromConfig(cfg *config.BadgeConfig) (Criteria, error) {
	minRating, err := decimal.NewFromString(cfg.MinRating)
	if err != nil {
		return Criteria{}, fmt.Errorf("%w: bad min rating %q: %v", ErrInvalidCriteria, cfg.MinRating, err)
	}
	if cfg.MinReviews < 1 || cfg.WindowDays < 1 {
		return Criteria{}, fmt.Errorf("%w: min reviews and window days must be positive", ErrInvalidCriteria)
	}
	return Criteria{
		MinReviews: cfg.MinReviews,
		MinRating:  minRating,
		WindowDays: cfg.WindowDays,
	}, nil
}

// Status is the derived badge state for one host. It is a view over
// the host's windowed evaluations and override, recomputed on every
// read and never persisted.
type Status struct {
	ReviewsCount int                  `json:"reviews_count_90d"`
	AvgRating    decimal.Decimal      `json:"avg_rating_90d"`
	AutoEligible bool                 `json:"auto_eligible"`
	HasBadge     bool                 `json:"has_valuable_host_badge"`
	Override     models.BadgeOverride `json:"badge_override"`
}

// Engine computes badge eligibility. It is pure: no clock reads, no
// I/O, deterministic for a given count/sum/override.
type Engine struct {
	criteria Criteria
}

// NewEngine creates a badge engine with the given criteria
func NewEngine(criteria Criteria) *Engine {
	return &Engine{criteria: criteria}
}

// Criteria returns the engine's thresholds
func (e *Engine) Criteria() Criteria {
	return e.criteria
}

// Compute derives the badge status from a window's review count and
// rating sum. The average comparison is exact: sum >= minRating*count
// as decimals, so a host sitting precisely on the threshold is
// eligible and no float rounding can flip the boundary.
func (e *Engine) Compute(count int, ratingSum int64, override models.BadgeOverride) Status {
	status := Status{
		ReviewsCount: count,
		AvgRating:    decimal.Zero,
		Override:     override,
	}

	if count > 0 {
		sum := decimal.NewFromInt(ratingSum)
		n := decimal.NewFromInt(int64(count))
		status.AvgRating = sum.DivRound(n, 2)
		status.AutoEligible = count >= e.criteria.MinReviews &&
			sum.GreaterThanOrEqual(e.criteria.MinRating.Mul(n))
	}

	switch override {
	case models.BadgeOverrideOn:
		status.HasBadge = true
	case models.BadgeOverrideOff:
		status.HasBadge = false
	default:
		status.HasBadge = status.AutoEligible
	}

	return status
}

// ParseOverride validates and converts an override string
func ParseOverride(value string) (models.BadgeOverride, error) {
	override := models.BadgeOverride(value)
	if !override.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOverride, value)
	}
	return override, nil
}
