package premium

import (
	"testing"

	"github.com/meetai/meetai/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestOfferFor(t *testing.T) {
	pro := domain.Product{ID: "pro"}
	team := domain.Product{ID: "team"}

	tests := []struct {
		name    string
		product domain.Product
		current *domain.Product
		want    Offer
	}{
		{"free user", pro, nil, Offer{ButtonText: "Get Started", Action: ActionCheckout}},
		{"current plan", pro, &pro, Offer{ButtonText: "Manage Subscription", Action: ActionPortal, Current: true}},
		{"other plan", team, &pro, Offer{ButtonText: "Switch Plan", Action: ActionPortal}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OfferFor(tt.product, tt.current))
		})
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		cents int
		want  string
	}{
		{0, "$0"},
		{2900, "$29"},
		{2950, "$29.50"},
		{5, "$0.05"},
		{129900, "$1,299"},
		{-100, "-$1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(tt.cents))
		})
	}
}

func TestPriceLabel(t *testing.T) {
	assert.Equal(t, "$29/month", PriceLabel(domain.Product{PriceAmount: 2900, Interval: "Month"}))
	assert.Equal(t, "$10", PriceLabel(domain.Product{PriceAmount: 1000}))
}
