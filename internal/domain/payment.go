package domain

import "time"

// PaymentStatus tracks a checkout attempt. pending moves to completed or failed
// exactly once; both are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentSession is one checkout attempt, keyed by the provider-assigned id.
type PaymentSession struct {
	ID               string        `json:"session_id"`
	OwnerEmail       string        `json:"owner_email"`
	RequestedCredits int           `json:"requested_credits"`
	Amount           int           `json:"amount"`
	Plan             Plan          `json:"plan,omitempty"`
	Status           PaymentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}
