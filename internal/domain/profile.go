package domain

import (
	"math"
	"net/mail"
	"strings"
	"time"

	dErrors "ateneo/pkg/domain-errors"
)

// Role distinguishes the two sides of the marketplace.
type Role string

const (
	RoleVolunteer    Role = "volunteer"
	RoleProfessional Role = "professional"
)

// ParseRole accepts the path segment used by the participant routes.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleVolunteer:
		return RoleVolunteer, true
	case RoleProfessional:
		return RoleProfessional, true
	}
	return "", false
}

// MaxCredits is the largest balance a profile can hold. It matches the
// INTEGER credits column.
const MaxCredits = math.MaxInt32

// AdminScoreFloor is the score an elevated profile is raised to, at minimum.
const AdminScoreFloor = 999

// Profile is one participant, keyed by email. WaiverSignedAt is set once the
// participant accepts the liability waiver.
type Profile struct {
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           Role       `json:"role"`
	Specialty      string     `json:"specialty,omitempty"`
	Credits        int        `json:"credits"`
	Score          int        `json:"score"`
	IsAdmin        bool       `json:"is_admin"`
	Tier           Plan       `json:"tier,omitempty"`
	WaiverSignedAt *time.Time `json:"waiver_signed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SignWaiver records acceptance of the liability waiver. Signing twice keeps
// the first timestamp.
func (p *Profile) SignWaiver(now time.Time) bool {
	if p.WaiverSignedAt != nil {
		return false
	}
	p.WaiverSignedAt = &now
	p.UpdatedAt = now
	return true
}

// CheckWaiver refuses participation until the waiver is signed. Admins are exempt.
func (p Profile) CheckWaiver() error {
	if p.IsAdmin || p.WaiverSignedAt != nil {
		return nil
	}
	return dErrors.New(dErrors.CodeWaiverRequired, "the liability waiver must be signed first")
}

// NormalizeEmail is the canonical form used as the profile key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes addr and rejects anything that is not a bare address.
func ValidateEmail(addr string) (string, error) {
	addr = NormalizeEmail(addr)
	if addr == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return addr, nil
}

// Elevate marks the profile as admin with top-tier access.
func (p *Profile) Elevate(now time.Time) {
	p.IsAdmin = true
	p.Tier = PlanLevel3
	if p.Score < AdminScoreFloor {
		p.Score = AdminScoreFloor
	}
	p.UpdatedAt = now
}
