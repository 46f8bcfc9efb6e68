package premium

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/meetai/meetai/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"type":"subscription.active"}`)
	sig := Sign("secret", body)

	assert.True(t, VerifySignature("secret", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("secret", []byte("tampered"), sig))
	assert.False(t, VerifySignature("", body, sig))
	assert.False(t, VerifySignature("secret", body, "sha256=zz"))
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	send := func(ev WebhookEvent) (domain.Subscription, error) {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		return f.svc.HandleWebhook(ctx, body, Sign("whsec_test", body))
	}

	sub, err := send(WebhookEvent{Type: EventSubscriptionActive, UserID: f.userID, ProductID: "pro-monthly"})
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)

	premium, err := f.svc.IsPremium(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, premium)

	_, err = send(WebhookEvent{Type: EventSubscriptionCanceled, UserID: f.userID, ProductID: "pro-monthly"})
	require.NoError(t, err)

	premium, err = f.svc.IsPremium(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, premium)
}

func TestHandleWebhook_Rejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	body := []byte(`{"type":"subscription.active","userId":"x","productId":"pro-monthly"}`)
	_, err := f.svc.HandleWebhook(ctx, body, "sha256=00")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	bad := []byte(`{"type":"refund","userId":"x"}`)
	_, err = f.svc.HandleWebhook(ctx, bad, Sign("whsec_test", bad))
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	unknown := []byte(`{"type":"subscription.active","userId":"x","productId":"gold"}`)
	_, err = f.svc.HandleWebhook(ctx, unknown, Sign("whsec_test", unknown))
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
