package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/models"
)

func newCouponCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupon",
		Short: "Manage discount coupons",
	}
	cmd.AddCommand(newCouponCreateCmd())
	return cmd
}

func newCouponCreateCmd() *cobra.Command {
	var (
		code    string
		percent int
		days    int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a coupon that expires after the given number of days",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateCoupon(code, percent, days)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := connect(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			coupon := &models.Coupon{
				Code:            strings.TrimSpace(code),
				DiscountPercent: percent,
				ExpiresAt:       time.Now().AddDate(0, 0, days),
			}
			coupons := &models.CouponModel{Collection: db.Coupons}
			if err := coupons.Insert(cmd.Context(), coupon); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created coupon %s: %d%% off until %s\n",
				coupon.Code, coupon.DiscountPercent, coupon.ExpiresAt.Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "coupon code (required)")
	cmd.Flags().IntVar(&percent, "percent", 0, "discount percentage, 1-100 (required)")
	cmd.Flags().IntVar(&days, "days", 7, "days until the coupon expires")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("percent")
	return cmd
}

func validateCoupon(code string, percent, days int) error {
	var errs []error
	if strings.TrimSpace(code) == "" {
		errs = append(errs, errors.New("code must not be empty"))
	}
	if percent < 1 || percent > 100 {
		errs = append(errs, fmt.Errorf("percent must be between 1 and 100, got %d", percent))
	}
	if days < 1 {
		errs = append(errs, fmt.Errorf("days must be at least 1, got %d", days))
	}
	return errors.Join(errs...)
}
