package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGateway(t *testing.T) {
	gw := NewLocal("local-secret", "http://localhost:8080")

	t.Run("sessions get unique ids and a checkout url", func(t *testing.T) {
		a, err := gw.CreateSession(context.Background(), SessionRequest{OwnerEmail: "bob@x.com"})
		require.NoError(t, err)
		b, err := gw.CreateSession(context.Background(), SessionRequest{OwnerEmail: "bob@x.com"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
		assert.True(t, strings.HasPrefix(a.URL, "http://localhost:8080/checkout/"))
	})

	t.Run("signed webhook parses", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","session_id":"cs_1"}`)
		evt, err := gw.ParseWebhook(payload, gw.Sign(payload))
		require.NoError(t, err)
		assert.Equal(t, EventCompleted, evt.Type)
		assert.Equal(t, "cs_1", evt.SessionID)
	})

	t.Run("expired maps to failed", func(t *testing.T) {
		payload := []byte(`{"type":"checkout.session.expired","session_id":"cs_2"}`)
		evt, err := gw.ParseWebhook(payload, gw.Sign(payload))
		require.NoError(t, err)
		assert.Equal(t, EventFailed, evt.Type)
	})

	t.Run("wrong signature", func(t *testing.T) {
		payload := []byte(`{"type":"checkout.session.completed","session_id":"cs_1"}`)
		_, err := gw.ParseWebhook(payload, NewLocal("other", "").Sign(payload))
		assert.ErrorIs(t, err, ErrBadSignature)

		_, err = gw.ParseWebhook(payload, "not-hex")
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("signed body that is not json", func(t *testing.T) {
		payload := []byte(`checkout.session.completed`)
		_, err := gw.ParseWebhook(payload, gw.Sign(payload))
		assert.ErrorIs(t, err, ErrMalformedEvent)
		assert.NotErrorIs(t, err, ErrBadSignature)
	})
}
