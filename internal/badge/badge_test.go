package badge

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/valuablehost/hostpulse/internal/config"
	"github.com/valuablehost/hostpulse/internal/models"
)

func configBadge(minRating string, minReviews, windowDays int) *config.BadgeConfig {
	return &config.BadgeConfig{
		MinReviews:       minReviews,
		MinRating:        minRating,
		WindowDays:       windowDays,
		LeaderboardLimit: 40,
	}
}

func sumOf(ratings []int) (int, int64) {
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	return len(ratings), sum
}

func TestCompute_AutoEligibility(t *testing.T) {
	engine := NewEngine(DefaultCriteria())

	tests := []struct {
		name      string
		ratings   []int
		override  models.BadgeOverride
		wantBadge bool
		wantAvg   string
	}{
		{
			name:      "ten perfect reviews earns badge",
			ratings:   []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
			override:  models.BadgeOverrideAuto,
			wantBadge: true,
			wantAvg:   "5",
		},
		{
			name:      "nine perfect reviews is below minimum count",
			ratings:   []int{5, 5, 5, 5, 5, 5, 5, 5, 5},
			override:  models.BadgeOverrideAuto,
			wantBadge: false,
			wantAvg:   "5",
		},
		{
			name:      "nine reviews with override on gets badge",
			ratings:   []int{5, 5, 5, 5, 5, 5, 5, 5, 5},
			override:  models.BadgeOverrideOn,
			wantBadge: true,
			wantAvg:   "5",
		},
		{
			name:      "ten perfect reviews with override off loses badge",
			ratings:   []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
			override:  models.BadgeOverrideOff,
			wantBadge: false,
			wantAvg:   "5",
		},
		{
			name:      "average exactly 4.8 is eligible",
			ratings:   []int{5, 5, 5, 5, 5, 5, 5, 5, 4, 4}, // sum 48, avg 4.8
			override:  models.BadgeOverrideAuto,
			wantBadge: true,
			wantAvg:   "4.8",
		},
		{
			name:      "average just below 4.8 is not eligible",
			ratings:   []int{5, 5, 5, 5, 5, 5, 5, 4, 4, 4}, // sum 47, avg 4.7
			override:  models.BadgeOverrideAuto,
			wantBadge: false,
			wantAvg:   "4.7",
		},
		{
			name:      "no reviews no badge",
			ratings:   nil,
			override:  models.BadgeOverrideAuto,
			wantBadge: false,
			wantAvg:   "0",
		},
		{
			name:      "no reviews with override on still gets badge",
			ratings:   nil,
			override:  models.BadgeOverrideOn,
			wantBadge: true,
			wantAvg:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, sum := sumOf(tt.ratings)
			status := engine.Compute(count, sum, tt.override)

			assert.Equal(t, tt.wantBadge, status.HasBadge)
			assert.Equal(t, count, status.ReviewsCount)
			assert.True(t, status.AvgRating.Equal(decimal.RequireFromString(tt.wantAvg)),
				"avg = %s, want %s", status.AvgRating, tt.wantAvg)
		})
	}
}

func TestCompute_ZeroCountReportsNoData(t *testing.T) {
	engine := NewEngine(DefaultCriteria())
	status := engine.Compute(0, 0, models.BadgeOverrideAuto)

	assert.Equal(t, 0, status.ReviewsCount)
	assert.True(t, status.AvgRating.IsZero())
	assert.False(t, status.AutoEligible)
	assert.False(t, status.HasBadge)
}

func TestParseOverride(t *testing.T) {
	for _, valid := range []string{"auto", "on", "off"} {
		override, err := ParseOverride(valid)
		assert.NoError(t, err)
		assert.Equal(t, models.BadgeOverride(valid), override)
	}

	for _, invalid := range []string{"", "ON", "enabled", "true", "1"} {
		_, err := ParseOverride(invalid)
		assert.ErrorIs(t, err, ErrInvalidOverride)
	}
}

func TestCriteriaFromConfig(t *testing.T) {
	criteria, err := CriteriaFromConfig(configBadge("4.8", 10, 90))
	assert.NoError(t, err)
	assert.Equal(t, 10, criteria.MinReviews)
	assert.True(t, criteria.MinRating.Equal(decimal.RequireFromString("4.8")))

	_, err = CriteriaFromConfig(configBadge("not-a-number", 10, 90))
	assert.ErrorIs(t, err, ErrInvalidCriteria)

	_, err = CriteriaFromConfig(configBadge("4.8", 0, 90))
	assert.ErrorIs(t, err, ErrInvalidCriteria)
}
