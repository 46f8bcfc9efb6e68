package domain

import "time"

// Product is a subscription plan offered by the billing provider.
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	PriceAmount int      `json:"priceAmount" yaml:"priceAmount"` // cents
	Interval    string   `json:"priceInterval" yaml:"interval"`
	Benefits    []string `json:"benefits,omitempty" yaml:"benefits,omitempty"`
	Badge       string   `json:"badge,omitempty" yaml:"badge,omitempty"`
	Highlighted bool     `json:"highlighted,omitempty" yaml:"highlighted,omitempty"`
}

// SubscriptionStatus is the billing state of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription links a user to a product.
type Subscription struct {
	UserID    string             `json:"userId"`
	ProductID string             `json:"productId"`
	Status    SubscriptionStatus `json:"status"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Messages of the plan limit errors raised once the free tier is used up.
const (
	FreeAgentsUsedUp   = "You have reached the maximum number of free agents"
	FreeMeetingsUsedUp = "You have reached the maximum number of free meetings"
)

// FreeUsage reports how much of the free tier a user has consumed.
type FreeUsage struct {
	AgentCount   int `json:"agentCount"`
	MeetingCount int `json:"meetingCount"`
	MaxAgents    int `json:"maxAgents"`
	MaxMeetings  int `json:"maxMeetings"`
}

// AgentPercent is the share of the agent allowance in use, capped at 100.
func (u FreeUsage) AgentPercent() float64 { return percent(u.AgentCount, u.MaxAgents) }

// MeetingPercent is the share of the meeting allowance in use, capped at 100.
func (u FreeUsage) MeetingPercent() float64 { return percent(u.MeetingCount, u.MaxMeetings) }

func percent(n, max int) float64 {
	if max <= 0 {
		return 100
	}
	p := float64(n) / float64(max) * 100
	if p > 100 {
		return 100
	}
	return p
}
