// Package premium enforces the free tier and hands users off to the hosted
// billing provider.
package premium

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/store"
)

// Limits is the free tier allowance.
type Limits struct {
	MaxAgents   int
	MaxMeetings int
}

// Service answers plan questions for one user at a time. Limits, catalog and
// billing URLs can be swapped at runtime with Apply.
type Service struct {
	agents   *store.AgentStore
	meetings *store.MeetingStore
	subs     *store.SubscriptionStore
	log      *logging.Logger

	mu       sync.RWMutex
	limits   Limits
	products []domain.Product
	billing  config.BillingConfig
	appURL   string
}

// NewService creates a premium service configured from cfg.
func NewService(agents *store.AgentStore, meetings *store.MeetingStore, subs *store.SubscriptionStore, cfg config.Config, log *logging.Logger) *Service {
	s := &Service{
		agents:   agents,
		meetings: meetings,
		subs:     subs,
		log:      log.Sub("premium"),
	}
	s.Apply(cfg)
	return s
}

// Apply installs the plan, catalog and billing settings of cfg.
func (s *Service) Apply(cfg config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Limits{MaxAgents: cfg.Plans.MaxFreeAgents, MaxMeetings: cfg.Plans.MaxFreeMeetings}
	if s.limits != (Limits{}) && s.limits != next {
		s.log.Info().
			Int("maxAgents", next.MaxAgents).
			Int("maxMeetings", next.MaxMeetings).
			Msg("free tier limits changed")
	}
	s.limits = next
	s.products = append([]domain.Product(nil), cfg.Billing.Products...)
	s.billing = cfg.Billing
	s.appURL = strings.TrimRight(cfg.Server.AppURL, "/")
}

// Limits returns the current free tier allowance.
func (s *Service) Limits() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// IsPremium reports whether the user has an active subscription.
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	_, ok, err := s.subs.Active(ctx, userID)
	if err != nil {
		return false, domain.Internal(fmt.Errorf("load subscription: %w", err))
	}
	return ok, nil
}

// Usage reports free tier consumption. Premium users have no free tier and
// get nil.
func (s *Service) Usage(ctx context.Context, userID string) (*domain.FreeUsage, error) {
	premium, err := s.IsPremium(ctx, userID)
	if err != nil || premium {
		return nil, err
	}
	agents, err := s.agents.Count(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("count agents: %w", err))
	}
	meetings, err := s.meetings.Count(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("count meetings: %w", err))
	}
	lim := s.Limits()
	return &domain.FreeUsage{
		AgentCount:   agents,
		MeetingCount: meetings,
		MaxAgents:    lim.MaxAgents,
		MaxMeetings:  lim.MaxMeetings,
	}, nil
}

// AgentLimit returns how many agents the user may own: the free allowance,
// or store.Unlimited for premium users.
func (s *Service) AgentLimit(ctx context.Context, userID string) (int, error) {
	premium, err := s.IsPremium(ctx, userID)
	if err != nil {
		return 0, err
	}
	if premium {
		return store.Unlimited, nil
	}
	return s.Limits().MaxAgents, nil
}

// MeetingLimit returns how many meetings the user may own: the free
// allowance, or store.Unlimited for premium users.
func (s *Service) MeetingLimit(ctx context.Context, userID string) (int, error) {
	premium, err := s.IsPremium(ctx, userID)
	if err != nil {
		return 0, err
	}
	if premium {
		return store.Unlimited, nil
	}
	return s.Limits().MaxMeetings, nil
}

// Products returns the catalog.
func (s *Service) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

// Product looks up a catalog entry by ID.
func (s *Service) Product(id string) (domain.Product, bool) {
	for _, p := range s.Products() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// CurrentSubscription returns the product of the user's active
// subscription, or nil for free users.
func (s *Service) CurrentSubscription(ctx context.Context, userID string) (*domain.Product, error) {
	sub, ok, err := s.subs.Active(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("load subscription: %w", err))
	}
	if !ok {
		return nil, nil
	}
	p, found := s.Product(sub.ProductID)
	if !found {
		s.log.Warn().Str("product", sub.ProductID).Str("user", userID).Msg("subscription references unknown product")
		return &domain.Product{ID: sub.ProductID, Name: sub.ProductID}, nil
	}
	return &p, nil
}

// CheckoutURL returns the billing provider URL that starts a subscription
// to productID.
func (s *Service) CheckoutURL(userID, productID string) (string, error) {
	if _, ok := s.Product(productID); !ok {
		return "", domain.Validation(map[string]string{"productId": "Unknown product"})
	}
	s.mu.RLock()
	tmpl := s.billing.CheckoutURL
	s.mu.RUnlock()
	return s.expand(tmpl, userID, productID)
}

// PortalURL returns the billing provider URL where a user manages their
// subscription.
func (s *Service) PortalURL(userID string) (string, error) {
	s.mu.RLock()
	tmpl := s.billing.PortalURL
	s.mu.RUnlock()
	return s.expand(tmpl, userID, "")
}

func (s *Service) expand(tmpl, userID, productID string) (string, error) {
	if tmpl == "" {
		return "", domain.Invalid("Billing is not configured")
	}
	s.mu.RLock()
	ret := ""
	if s.appURL != "" {
		ret = s.appURL + "/upgrade"
	}
	s.mu.RUnlock()
	r := strings.NewReplacer(
		"{productId}", url.QueryEscape(productID),
		"{userId}", url.QueryEscape(userID),
		"{returnUrl}", url.QueryEscape(ret),
	)
	return r.Replace(tmpl), nil
}
