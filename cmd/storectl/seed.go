package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var sampleProducts = []models.Product{
	{Name: "Ceramic Mug", Description: "12oz stoneware mug", Price: 20, Category: "Kitchen", Stock: 25},
	{Name: "Canvas Tote", Description: "Heavy cotton shopping bag", Price: 15, Category: "Accessories", Stock: 40},
	{Name: "Desk Lamp", Description: "Adjustable LED lamp", Price: 89.99, Category: "Home", Stock: 8},
	{Name: "Wool Beanie", Description: "Merino knit hat", Price: 24.5, Category: "Accessories", Stock: 0},
}

const seedCouponCode = "DISCOUNT10"

func newSeedCmd() *cobra.Command {
	var (
		adminName     string
		adminEmail    string
		adminPassword string
		fresh         bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load an admin account, sample products, a coupon and a review",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := connect(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			users := &repository.UserRepository{Collection: db.Users}
			products := &models.ProductModel{Collection: db.Products}
			coupons := &models.CouponModel{Collection: db.Coupons}
			reviews := &models.ReviewModel{Collection: db.Reviews}

			if fresh {
				if err := reviews.DeleteAll(ctx); err != nil {
					return fmt.Errorf("failed to clear reviews: %w", err)
				}
			}

			admin, err := users.Insert(ctx, adminName, adminEmail, adminPassword, auth.RoleAdmin)
			if errors.Is(err, models.ErrDuplicate) {
				admin, err = users.GetByEmail(ctx, adminEmail)
				if err == nil {
					fmt.Fprintf(out, "Admin %s already exists\n", admin.Email)
				}
			} else if err == nil {
				fmt.Fprintf(out, "Created admin %s\n", admin.Email)
			}
			if err != nil {
				return fmt.Errorf("failed to seed admin: %w", err)
			}

			var first *models.Product
			for _, sample := range sampleProducts {
				p := sample
				p.User = admin.ID
				if err := products.Insert(ctx, &p); err != nil {
					return fmt.Errorf("failed to insert %s: %w", p.Name, err)
				}
				if first == nil {
					first = &p
				}
				fmt.Fprintf(out, "Added product %s (%s)\n", p.Name, p.ID.Hex())
			}

			coupon := &models.Coupon{
				Code:            seedCouponCode,
				DiscountPercent: 10,
				ExpiresAt:       time.Now().AddDate(0, 0, 7),
			}
			if err := coupons.Upsert(ctx, coupon); err != nil {
				return fmt.Errorf("failed to seed coupon: %w", err)
			}
			fmt.Fprintf(out, "Coupon %s valid until %s\n", coupon.Code, coupon.ExpiresAt.Format(time.RFC1123))

			first.UpsertReview(models.Review{User: admin.ID, Name: admin.Name, Rating: 5, Comment: "Great mug"})
			if err := products.SaveReviews(ctx, first); err != nil {
				return fmt.Errorf("failed to seed product review: %w", err)
			}
			err = reviews.Insert(ctx, &models.ReviewRecord{
				User:    admin.ID,
				Product: first.ID,
				Rating:  5,
				Comment: "Great mug",
			})
			if err != nil {
				return fmt.Errorf("failed to seed review: %w", err)
			}

			fmt.Fprintln(out, "Seed complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&adminName, "admin-name", "Store Admin", "name of the seeded admin")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@example.com", "email of the seeded admin")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin12345", "password of the seeded admin")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "delete standalone reviews before seeding")
	return cmd
}
