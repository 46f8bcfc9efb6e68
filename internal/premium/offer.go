package premium

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/meetai/meetai/internal/domain"
)

// Action is what activating an offer does.
type Action string

const (
	ActionCheckout Action = "checkout"
	ActionPortal   Action = "portal"
)

// Offer is the call to action shown on a product card.
type Offer struct {
	ButtonText string
	Action     Action
	Current    bool
}

// OfferFor picks the call to action for product given the user's current
// subscription product, which is nil for free users.
func OfferFor(product domain.Product, current *domain.Product) Offer {
	switch {
	case current != nil && current.ID == product.ID:
		return Offer{ButtonText: "Manage Subscription", Action: ActionPortal, Current: true}
	case current != nil:
		return Offer{ButtonText: "Switch Plan", Action: ActionPortal}
	default:
		return Offer{ButtonText: "Get Started", Action: ActionCheckout}
	}
}

// FormatPrice renders an amount in cents as US dollars, dropping a zero
// fractional part: 2900 -> "$29", 2950 -> "$29.50", 129900 -> "$1,299".
func FormatPrice(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := sign + "$" + humanize.Comma(int64(cents/100))
	if c := cents % 100; c != 0 {
		s += fmt.Sprintf(".%02d", c)
	}
	return s
}

// PriceLabel renders the price with its billing interval, e.g. "$29/month".
func PriceLabel(p domain.Product) string {
	if p.Interval == "" {
		return FormatPrice(p.PriceAmount)
	}
	return FormatPrice(p.PriceAmount) + "/" + strings.ToLower(p.Interval)
}
