// Package gateway is the Payment Gateway boundary: it opens hosted checkout
// sessions and turns signed provider callbacks into session events.
package gateway

import (
	"context"
	"errors"
)

// ErrBadSignature is returned by ParseWebhook when the payload is not signed
// by the provider.
var ErrBadSignature = errors.New("webhook signature verification failed")

// ErrMalformedEvent is returned by ParseWebhook when the signature is valid
// but the body cannot be decoded.
var ErrMalformedEvent = errors.New("webhook verified but unreadable")

// EventType is the normalized outcome a webhook reports for a session.
type EventType string

const (
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	// EventIgnored covers provider events that do not move a session.
	EventIgnored EventType = "ignored"
)

// SessionRequest describes one checkout.
type SessionRequest struct {
	OwnerEmail string
	Role       string
	Credits    int
	Amount     int // whole USD
	Plan       string
	Label      string
	SuccessURL string
	CancelURL  string
}

// Session is a provider-assigned checkout.
type Session struct {
	ID  string
	URL string
}

// Event is a verified webhook. RawType keeps the provider's event name.
type Event struct {
	ID        string
	Type      EventType
	RawType   string
	SessionID string
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	// ParseWebhook verifies signature over payload; ErrBadSignature on failure,
	// ErrMalformedEvent when a signed body does not decode.
	ParseWebhook(payload []byte, signature string) (Event, error)
}
