package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Stripe opens Stripe Checkout sessions and verifies Stripe-Signature headers.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

type StripeOption func(*stripe.Backends)

// WithBackendURL points the API client at another base URL.
func WithBackendURL(url string) StripeOption {
	return func(b *stripe.Backends) {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:           stripe.String(url),
			LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
		})
		b.API = backend
		b.Connect = backend
		b.Uploads = backend
	}
}

func NewStripe(secretKey, webhookSecret string, opts ...StripeOption) *Stripe {
	var backends *stripe.Backends
	if len(opts) > 0 {
		backends = &stripe.Backends{}
		for _, opt := range opts {
			opt(backends)
		}
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

func (s *Stripe) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.OwnerEmail),
		ClientReferenceID: stripe.String(req.OwnerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Label),
				},
				UnitAmount: stripe.Int64(int64(req.Amount) * 100),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata("owner_email", req.OwnerEmail)
	params.AddMetadata("role", req.Role)
	params.AddMetadata("credits", strconv.Itoa(req.Credits))
	if req.Plan != "" {
		params.AddMetadata("plan", req.Plan)
	}

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := Event{ID: evt.ID, RawType: string(evt.Type), Type: EventIgnored}
	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
	default:
		return out, nil
	}

	var cs stripe.CheckoutSession
	if evt.Data == nil {
		return out, nil
	}
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("%w: decode checkout session: %v", ErrMalformedEvent, err)
	}
	out.SessionID = cs.ID

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// delayed payment methods complete the checkout before the money arrives
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid {
			out.Type = EventCompleted
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Type = EventCompleted
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.Type = EventFailed
	}
	return out, nil
}
