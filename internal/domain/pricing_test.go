package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceFor(t *testing.T) {
	t.Run("volunteer pays fifty per credit", func(t *testing.T) {
		q, err := PriceFor(RoleVolunteer, 2, 100, "")
		require.NoError(t, err)
		assert.Equal(t, 2, q.Credits)
		assert.Equal(t, 100, q.Amount)
		assert.Empty(t, q.Plan)
	})

	t.Run("volunteer price mismatch is rejected", func(t *testing.T) {
		_, err := PriceFor(RoleVolunteer, 1, 40, "")
		assert.Error(t, err)
	})

	t.Run("oversized volunteer purchases are rejected", func(t *testing.T) {
		cases := []struct {
			name    string
			credits int
			amount  int
		}{
			{"wrapping multiplication", 368934881474191033, 34},
			{"over the per-purchase cap", MaxVolunteerCredits + 1, (MaxVolunteerCredits + 1) * VolunteerCreditPrice},
			{"negative amount", 1, -50},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := PriceFor(RoleVolunteer, tc.credits, tc.amount, "")
				assert.Error(t, err)
			})
		}
	})

	t.Run("cap itself is accepted", func(t *testing.T) {
		q, err := PriceFor(RoleVolunteer, MaxVolunteerCredits, MaxVolunteerCredits*VolunteerCreditPrice, "")
		require.NoError(t, err)
		assert.Equal(t, MaxVolunteerCredits, q.Credits)
	})

	t.Run("non-positive credits are rejected", func(t *testing.T) {
		_, err := PriceFor(RoleVolunteer, 0, 0, "")
		assert.Error(t, err)
	})

	t.Run("professional monthly plan inferred from credits and amount", func(t *testing.T) {
		q, err := PriceFor(RoleProfessional, 10, 220, "")
		require.NoError(t, err)
		assert.Equal(t, PlanLevel2, q.Plan)
	})

	t.Run("professional quarterly plan grants three months of credits", func(t *testing.T) {
		q, err := PriceFor(RoleProfessional, 45, 840, PlanLevel3)
		require.NoError(t, err)
		assert.Equal(t, PlanLevel3, q.Plan)
		assert.Equal(t, 45, q.Credits)
	})

	t.Run("plan alone selects monthly terms", func(t *testing.T) {
		q, err := PriceFor(RoleProfessional, 0, 0, "level_1")
		require.NoError(t, err)
		assert.Equal(t, PlanLevel1, q.Plan)
		assert.Equal(t, 5, q.Credits)
		assert.Equal(t, 160, q.Amount)
	})

	t.Run("flat range pricing is no longer accepted", func(t *testing.T) {
		_, err := PriceFor(RoleProfessional, 1, 150, "")
		assert.Error(t, err)
	})

	t.Run("plan mismatch with amount is rejected", func(t *testing.T) {
		_, err := PriceFor(RoleProfessional, 5, 160, PlanLevel2)
		assert.Error(t, err)
	})
}

func TestScoreDelta(t *testing.T) {
	assert.Equal(t, 10, ScoreDelta(OutcomeVictory))
	assert.Equal(t, -5, ScoreDelta(OutcomeDefeat))
	assert.Equal(t, 0, ScoreDelta(OutcomeDraw))
	assert.Equal(t, 0, ScoreDelta(Outcome("stalemate")))

	assert.Equal(t, "+10", FormatDelta(10))
	assert.Equal(t, "-5", FormatDelta(-5))
	assert.Equal(t, "+0", FormatDelta(0))
}

func TestElevate(t *testing.T) {
	p := Profile{Email: "admin@x.com", Score: 12}
	p.Elevate(p.CreatedAt)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, PlanLevel3, p.Tier)
	assert.Equal(t, AdminScoreFloor, p.Score)

	high := Profile{Email: "top@x.com", Score: 5000}
	high.Elevate(high.CreatedAt)
	assert.Equal(t, 5000, high.Score)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("Professional")
	assert.True(t, ok)
	assert.Equal(t, RoleProfessional, r)

	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestValidateEmail(t *testing.T) {
	addr, err := ValidateEmail("  Bob@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", addr)

	for _, bad := range []string{"", "   ", "bob", "Bob <bob@x.com>", "bob@"} {
		_, err := ValidateEmail(bad)
		assert.Error(t, err, bad)
	}
}
