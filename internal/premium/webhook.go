package premium

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meetai/meetai/internal/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Meetai-Signature"

// Webhook event types.
const (
	EventSubscriptionActive   = "subscription.active"
	EventSubscriptionCanceled = "subscription.canceled"
)

// WebhookEvent is the billing provider's notification body.
type WebhookEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

// Sign returns the signature header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header produced by Sign.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// HandleWebhook verifies and applies a billing event.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (domain.Subscription, error) {
	s.mu.RLock()
	secret := s.billing.WebhookSecret
	s.mu.RUnlock()
	if !VerifySignature(secret, body, signature) {
		return domain.Subscription{}, domain.Unauthorized("Invalid webhook signature")
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.Subscription{}, domain.Invalid("Invalid webhook payload")
	}
	if ev.UserID == "" {
		return domain.Subscription{}, domain.Validation(map[string]string{"userId": "User is required"})
	}

	sub := domain.Subscription{UserID: ev.UserID, ProductID: ev.ProductID}
	switch ev.Type {
	case EventSubscriptionActive:
		if _, ok := s.Product(ev.ProductID); !ok {
			return domain.Subscription{}, domain.Validation(map[string]string{"productId": "Unknown product"})
		}
		sub.Status = domain.SubscriptionActive
	case EventSubscriptionCanceled:
		sub.Status = domain.SubscriptionCanceled
	default:
		return domain.Subscription{}, domain.Invalid(fmt.Sprintf("Unsupported event type %q", ev.Type))
	}

	saved, err := s.subs.Upsert(ctx, sub)
	if err != nil {
		return domain.Subscription{}, domain.Internal(fmt.Errorf("save subscription: %w", err))
	}
	s.log.Info().Str("user", ev.UserID).Str("product", ev.ProductID).Str("status", string(sub.Status)).Msg("subscription updated")
	return saved, nil
}
