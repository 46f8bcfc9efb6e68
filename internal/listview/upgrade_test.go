package listview

import (
	"context"
	"errors"
	"testing"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/premium"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []domain.Product{
	{ID: "pro", Name: "Pro", PriceAmount: 2900, Interval: "month", Benefits: []string{"Unlimited agents"}},
	{ID: "team", Name: "Team", PriceAmount: 9900, Interval: "month", Badge: "Best Value", Highlighted: true},
}

func TestLoadUpgrade(t *testing.T) {
	h := newHarness()
	h.api.products = catalog
	h.api.current = &catalog[0]

	u, err := LoadUpgrade(context.Background(), h.fetch)
	require.NoError(t, err)
	assert.Equal(t, "Pro", u.PlanName())
	assert.Len(t, u.Products, 2)

	_, err = LoadUpgrade(context.Background(), h.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.count("premium.getProducts"))
}

func TestLoadUpgrade_Error(t *testing.T) {
	h := newHarness()
	h.api.failWith = domain.Internal(errors.New("down"))
	_, err := LoadUpgrade(context.Background(), h.fetch)
	assert.Error(t, err)
}

func TestUpgrade_Offers(t *testing.T) {
	free := Upgrade{Products: catalog}
	assert.Equal(t, "Free", free.PlanName())
	_, offer, ok := free.Offer("team")
	require.True(t, ok)
	assert.Equal(t, premium.ActionCheckout, offer.Action)

	sub := Upgrade{Products: catalog, Current: &catalog[0]}
	_, offer, _ = sub.Offer("pro")
	assert.Equal(t, "Manage Subscription", offer.ButtonText)
	_, offer, _ = sub.Offer("team")
	assert.Equal(t, "Switch Plan", offer.ButtonText)

	_, _, ok = sub.Offer("missing")
	assert.False(t, ok)
}

func TestUpgrade_Render(t *testing.T) {
	out := Upgrade{Products: catalog}.Render()
	for _, want := range []string{"You are on the", "Free", "$29/month", "$99/month", "Best Value", "Unlimited agents", "Get Started"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderUsage(t *testing.T) {
	assert.Contains(t, RenderUsage(nil), "Premium")

	out := RenderUsage(&domain.FreeUsage{AgentCount: 1, MaxAgents: 1, MeetingCount: 0, MaxMeetings: 1})
	assert.Contains(t, out, "Agents")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "0/1")
}
