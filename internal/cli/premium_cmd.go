package cli

import (
	"fmt"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/listview"
	"github.com/meetai/meetai/internal/premium"
	"github.com/spf13/cobra"
)

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show how much of the free plan you have used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			u, err := s.fetch.Usage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), listview.RenderUsage(u))
			return nil
		},
	}
}

func newUpgradeCmd() *cobra.Command {
	var (
		checkout string
		portal   bool
	)

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Show plans and open checkout or the billing portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			u, err := listview.LoadUpgrade(ctx, s.fetch)
			if err != nil {
				if domain.IsKind(err, domain.KindUnauthorized) {
					return err
				}
				fmt.Fprintln(out, listview.GenericError.Render())
				return reported(err)
			}

			action := premium.Action("")
			switch {
			case portal:
				action = premium.ActionPortal
			case checkout != "":
				_, offer, ok := u.Offer(checkout)
				if !ok {
					return domain.Validation(map[string]string{"productId": "Unknown product"})
				}
				action = offer.Action
			}

			var url string
			switch action {
			case premium.ActionCheckout:
				url, err = s.api.CheckoutURL(ctx, checkout)
			case premium.ActionPortal:
				url, err = s.api.PortalURL(ctx)
			default:
				fmt.Fprintln(out, u.Render())
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, url)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkout, "checkout", "", "print the checkout URL for a product")
	cmd.Flags().BoolVar(&portal, "portal", false, "print the billing portal URL")
	return cmd
}
