package listview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/premium"
	"golang.org/x/sync/errgroup"
)

var (
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(36)
	highlightStyle = cardStyle.BorderForeground(lipgloss.Color("10"))
	currentStyle   = cardStyle.BorderStyle(lipgloss.DoubleBorder())
)

// Upgrade is the plan picker: the catalog and the plan the user is on.
type Upgrade struct {
	Products []domain.Product
	// Current is the subscribed product, nil on the free plan.
	Current *domain.Product
}

// LoadUpgrade fetches the catalog and the current subscription together.
func LoadUpgrade(ctx context.Context, f *Fetcher) (Upgrade, error) {
	var u Upgrade
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		u.Products, err = f.Products(ctx)
		return err
	})
	g.Go(func() (err error) {
		u.Current, err = f.Subscription(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Upgrade{}, err
	}
	return u, nil
}

// PlanName is the name of the user's plan.
func (u Upgrade) PlanName() string {
	if u.Current == nil {
		return "Free"
	}
	return u.Current.Name
}

// Offer returns the product with id and its call to action.
func (u Upgrade) Offer(id string) (domain.Product, premium.Offer, bool) {
	for _, p := range u.Products {
		if p.ID == id {
			return p, premium.OfferFor(p, u.Current), true
		}
	}
	return domain.Product{}, premium.Offer{}, false
}

// Render draws one card per product.
func (u Upgrade) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are on the %s plan\n\n", titleStyle.Render(u.PlanName()))
	cards := make([]string, 0, len(u.Products))
	for _, p := range u.Products {
		cards = append(cards, u.card(p))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	return b.String()
}

func (u Upgrade) card(p domain.Product) string {
	offer := premium.OfferFor(p, u.Current)
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Name))
	if p.Badge != "" {
		b.WriteString("  " + mutedStyle.Render("["+p.Badge+"]"))
	}
	b.WriteString("\n" + premium.PriceLabel(p) + "\n")
	if p.Description != "" {
		b.WriteString(mutedStyle.Render(p.Description) + "\n")
	}
	for _, benefit := range p.Benefits {
		b.WriteString("✓ " + benefit + "\n")
	}
	fmt.Fprintf(&b, "\n[ %s ]  %s", offer.ButtonText, mutedStyle.Render(p.ID))

	style := cardStyle
	switch {
	case offer.Current:
		style = currentStyle
	case p.Highlighted:
		style = highlightStyle
	}
	return style.Render(b.String())
}

// RenderUsage draws the free tier allowance. Premium users have no usage
// to show.
func RenderUsage(u *domain.FreeUsage) string {
	if u == nil {
		return "Premium plan: no limits on agents or meetings"
	}
	return fmt.Sprintf("Free trial\n%s\n%s",
		usageLine("Agents", u.AgentCount, u.MaxAgents, u.AgentPercent()),
		usageLine("Meetings", u.MeetingCount, u.MaxMeetings, u.MeetingPercent()))
}

func usageLine(label string, used, limit int, pct float64) string {
	const width = 20
	filled := int(pct / 100 * width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%-9s %s %d/%d", label, bar, used, limit)
}
