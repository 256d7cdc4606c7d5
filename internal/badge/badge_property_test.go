package badge

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/valuablehost/hostpulse/internal/models"
	"pgregory.net/rapid"
)

// ============================================
// Property Tests for Badge Eligibility
// ============================================

// TestProperty_Badge_AutoMatchesThresholds tests the auto eligibility formula.
// *For any* set of ratings under override=auto, the badge SHALL equal
// (count >= MinReviews AND avg >= MinRating), compared exactly.
func TestProperty_Badge_AutoMatchesThresholds(t *testing.T) {
	engine := NewEngine(DefaultCriteria())

	rapid.Check(t, func(rt *rapid.T) {
		ratings := rapid.SliceOfN(rapid.IntRange(1, 5), 0, 200).Draw(rt, "ratings")

		var sum int64
		for _, r := range ratings {
			sum += int64(r)
		}
		count := len(ratings)

		status := engine.Compute(count, sum, models.BadgeOverrideAuto)

		// Reference check without floating point: avg >= 4.8 iff 10*sum >= 48*count
		expected := count >= 10 && 10*sum >= 48*int64(count)

		if status.HasBadge != expected {
			t.Fatalf("PROPERTY VIOLATION: badge for count=%d sum=%d should be %v, got %v",
				count, sum, expected, status.HasBadge)
		}
		if status.AutoEligible != expected {
			t.Fatalf("PROPERTY VIOLATION: auto eligibility for count=%d sum=%d should be %v, got %v",
				count, sum, expected, status.AutoEligible)
		}
	})
}

// TestProperty_Badge_OverrideDominates tests that on/off always wins.
// *For any* set of ratings and override in {on, off}, the badge SHALL
// equal the override regardless of the evaluations, including empty sets.
func TestProperty_Badge_OverrideDominates(t *testing.T) {
	engine := NewEngine(DefaultCriteria())

	rapid.Check(t, func(rt *rapid.T) {
		ratings := rapid.SliceOfN(rapid.IntRange(1, 5), 0, 200).Draw(rt, "ratings")
		forcedOn := rapid.Bool().Draw(rt, "forcedOn")

		var sum int64
		for _, r := range ratings {
			sum += int64(r)
		}

		override := models.BadgeOverrideOff
		if forcedOn {
			override = models.BadgeOverrideOn
		}

		status := engine.Compute(len(ratings), sum, override)

		if status.HasBadge != forcedOn {
			t.Fatalf("PROPERTY VIOLATION: badge with override=%s should be %v, got %v",
				override, forcedOn, status.HasBadge)
		}
	})
}

// TestProperty_Badge_AverageInRange tests that a non-empty window's
// average always stays within the valid rating range.
func TestProperty_Badge_AverageInRange(t *testing.T) {
	engine := NewEngine(DefaultCriteria())

	one := decimal.NewFromInt(1)
	five := decimal.NewFromInt(5)

	rapid.Check(t, func(rt *rapid.T) {
		ratings := rapid.SliceOfN(rapid.IntRange(1, 5), 1, 200).Draw(rt, "ratings")

		var sum int64
		for _, r := range ratings {
			sum += int64(r)
		}

		status := engine.Compute(len(ratings), sum, models.BadgeOverrideAuto)

		if status.AvgRating.LessThan(one) || status.AvgRating.GreaterThan(five) {
			t.Fatalf("PROPERTY VIOLATION: average rating %s out of range for %d ratings",
				status.AvgRating, len(ratings))
		}
	})
}

// TestProperty_Badge_Deterministic tests that the engine is pure:
// the same inputs always produce the same status.
func TestProperty_Badge_Deterministic(t *testing.T) {
	engine := NewEngine(DefaultCriteria())

	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 500).Draw(rt, "count")
		sum := int64(0)
		if count > 0 {
			sum = rapid.Int64Range(int64(count), int64(count)*5).Draw(rt, "sum")
		}

		first := engine.Compute(count, sum, models.BadgeOverrideAuto)
		second := engine.Compute(count, sum, models.BadgeOverrideAuto)

		if first.HasBadge != second.HasBadge || !first.AvgRating.Equal(second.AvgRating) {
			t.Fatalf("PROPERTY VIOLATION: engine not deterministic for count=%d sum=%d", count, sum)
		}
	})
}
