package domain

import (
	"fmt"
	"strings"
)

// VolunteerCreditPrice is the whole-dollar price of one volunteer credit.
const VolunteerCreditPrice = 50

// MaxVolunteerCredits bounds a single volunteer checkout.
const MaxVolunteerCredits = 1000

// Plan is a professional subscription level.
type Plan string

const (
	PlanLevel1 Plan = "LEVEL_1"
	PlanLevel2 Plan = "LEVEL_2"
	PlanLevel3 Plan = "LEVEL_3"
)

// PlanTerms describes one subscription level. CaseLimit is the number of credits
// granted per month of subscription.
type PlanTerms struct {
	Plan          Plan
	Name          string
	CostMonthly   int
	CostQuarterly int
	CaseLimit     int
}

var plans = []PlanTerms{
	{Plan: PlanLevel1, Name: "Clinical Collaborator", CostMonthly: 160, CostQuarterly: 420, CaseLimit: 5},
	{Plan: PlanLevel2, Name: "Clinical Expert", CostMonthly: 220, CostQuarterly: 600, CaseLimit: 10},
	{Plan: PlanLevel3, Name: "Principal Investigator", CostMonthly: 300, CostQuarterly: 840, CaseLimit: 15},
}

// Plans lists the subscription levels in ascending order.
func Plans() []PlanTerms {
	out := make([]PlanTerms, len(plans))
	copy(out, plans)
	return out
}

// TermsFor returns the terms of a plan.
func TermsFor(p Plan) (PlanTerms, bool) {
	for _, t := range plans {
		if t.Plan == Plan(strings.ToUpper(string(p))) {
			return t, true
		}
	}
	return PlanTerms{}, false
}

// Quote is a validated purchase: how many credits an amount buys.
type Quote struct {
	Credits int
	Amount  int
	Plan    Plan
	Label   string
}

// PriceFor validates a purchase against the pricing schema of the role.
// Volunteers pay a fixed price per credit. Professionals buy a plan, monthly or
// quarterly; when plan is empty the plan is inferred from (credits, amount), and
// a plan given without credits or amount selects its monthly terms.
func PriceFor(role Role, credits, amount int, plan Plan) (Quote, error) {
	if role == RoleProfessional && plan != "" && credits == 0 && amount == 0 {
		t, ok := TermsFor(plan)
		if !ok {
			return Quote{}, fmt.Errorf("unknown plan %q", plan)
		}
		credits, amount = t.CaseLimit, t.CostMonthly
	}
	if credits <= 0 {
		return Quote{}, fmt.Errorf("credits must be positive")
	}
	switch role {
	case RoleVolunteer:
		if credits > MaxVolunteerCredits {
			return Quote{}, fmt.Errorf("at most %d credits per purchase", MaxVolunteerCredits)
		}
		if amount <= 0 || amount%VolunteerCreditPrice != 0 || amount/VolunteerCreditPrice != credits {
			return Quote{}, fmt.Errorf("volunteer credits cost $%d each", VolunteerCreditPrice)
		}
		return Quote{Credits: credits, Amount: amount, Label: fmt.Sprintf("Volunteer clinical case x%d", credits)}, nil
	case RoleProfessional:
		for _, t := range plans {
			if plan != "" && t.Plan != Plan(strings.ToUpper(string(plan))) {
				continue
			}
			if credits == t.CaseLimit && amount == t.CostMonthly {
				return Quote{Credits: credits, Amount: amount, Plan: t.Plan, Label: t.Name + " (monthly)"}, nil
			}
			if credits == 3*t.CaseLimit && amount == t.CostQuarterly {
				return Quote{Credits: credits, Amount: amount, Plan: t.Plan, Label: t.Name + " (quarterly)"}, nil
			}
		}
		return Quote{}, fmt.Errorf("no professional plan matches %d credits for $%d", credits, amount)
	}
	return Quote{}, fmt.Errorf("unknown role %q", role)
}
