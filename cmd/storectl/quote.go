package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/cart"
)

func newQuoteCmd() *cobra.Command {
	var (
		cartFile      string
		couponPercent int
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print checkout totals for a saved cart",
		Long: `Reads a cart in the shape the storefront keeps in browser storage
(a JSON array of {product, name, image, price, stock, qty}) and prints
the items, shipping, tax, discount and total the checkout page will show.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if couponPercent < 0 || couponPercent > 100 {
				return fmt.Errorf("coupon-percent must be between 0 and 100, got %d", couponPercent)
			}

			f, err := os.Open(cartFile)
			if err != nil {
				return err
			}
			defer f.Close()

			c, err := cart.Load(f)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c.Quote(couponPercent))
		},
	}

	cmd.Flags().StringVar(&cartFile, "cart", "", "path to the cart JSON file (required)")
	cmd.Flags().IntVar(&couponPercent, "coupon-percent", 0, "coupon discount percentage to apply")
	cmd.MarkFlagRequired("cart")
	return cmd
}
