package admin

import "ateneo/internal/domain"

// AuthResponse is the /admin-auth reply. Score is set only when a profile was
// elevated.
type AuthResponse struct {
	Success bool   `json:"success"`
	Score   *int   `json:"score,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatsResponse summarizes the marketplace for operators.
type StatsResponse struct {
	TotalProfiles     int `json:"total_profiles"`
	Volunteers        int `json:"volunteers"`
	Professionals     int `json:"professionals"`
	Admins            int `json:"admins"`
	TotalCases        int `json:"total_cases"`
	CasesPending      int `json:"cases_pending"`
	CasesAnalyzed     int `json:"cases_analyzed"`
	PaymentsPending   int `json:"payments_pending"`
	PaymentsCompleted int `json:"payments_completed"`
	PaymentsFailed    int `json:"payments_failed"`
	CreditsSold       int `json:"credits_sold"`
	Revenue           int `json:"revenue"`
}

// PaymentsResponse wraps the payment session list.
type PaymentsResponse struct {
	Payments []domain.PaymentSession `json:"payments"`
	Total    int                     `json:"total"`
}

// ProfilesResponse wraps the profile list.
type ProfilesResponse struct {
	Profiles []domain.Profile `json:"profiles"`
	Total    int              `json:"total"`
}
