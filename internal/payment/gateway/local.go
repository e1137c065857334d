package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Local is a self-contained gateway for development and tests. Sessions are
// opened without a provider and webhooks are signed with HMAC-SHA256 over the
// raw body using the shared secret.
type Local struct {
	secret  []byte
	baseURL string
}

func NewLocal(secret, baseURL string) *Local {
	return &Local{secret: []byte(secret), baseURL: baseURL}
}

// LocalPayload is the body Local expects on its webhook.
type LocalPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (l *Local) CreateSession(_ context.Context, req SessionRequest) (Session, error) {
	id := "cs_local_" + uuid.NewString()
	return Session{ID: id, URL: fmt.Sprintf("%s/checkout/%s", l.baseURL, id)}, nil
}

// Sign returns the signature Local accepts for payload.
func (l *Local) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, l.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *Local) ParseWebhook(payload []byte, signature string) (Event, error) {
	want, err := hex.DecodeString(signature)
	if err != nil || len(l.secret) == 0 {
		return Event{}, ErrBadSignature
	}
	mac := hmac.New(sha256.New, l.secret)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), want) {
		return Event{}, ErrBadSignature
	}

	var p LocalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	out := Event{ID: p.ID, RawType: p.Type, SessionID: p.SessionID, Type: EventIgnored}
	switch p.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		out.Type = EventCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		out.Type = EventFailed
	}
	return out, nil
}
