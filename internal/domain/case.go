package domain

import "time"

// HypothesisPending marks a case whose AI hypothesis has not arrived yet.
const HypothesisPending = "pending"

// Outcome classifies a submitted debate.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeDraw    Outcome = "draw"
)

// DebateEntry is one reviewer submission on a case. The log is append-only.
type DebateEntry struct {
	ReviewerEmail string    `json:"reviewer_email"`
	DiagnosisText string    `json:"diagnosis_text"`
	Outcome       Outcome   `json:"outcome"`
	Timestamp     time.Time `json:"timestamp"`
}

// Case is a submitted clinical scenario open for debate.
type Case struct {
	ID                  string        `json:"case_id"`
	OwnerEmail          string        `json:"owner_email"`
	Summary             string        `json:"summary"`
	History             string        `json:"history"`
	AttachmentReference string        `json:"attachment_reference"`
	DiagnosisHypothesis string        `json:"diagnosis_hypothesis"`
	DebateLog           []DebateEntry `json:"debate_log"`
	CreatedAt           time.Time     `json:"created_at"`
}

// Assignment records that a reviewer drew a case. A reviewer is never assigned
// the same case twice.
type Assignment struct {
	CaseID        string     `json:"case_id"`
	ReviewerEmail string     `json:"reviewer_email"`
	AssignedAt    time.Time  `json:"assigned_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}
