package main

import (
	"context"
	"time"

	"github.com/robfig/cron"
)

// unpaidAfter is how long an order may wait for payment confirmation before
// it is reported as orphaned.
const unpaidAfter = 24 * time.Hour

const jobTimeout = time.Minute

// runHousekeeping schedules the periodic cleanup jobs and blocks until ctx
// is cancelled.
func (app *application) runHousekeeping(ctx context.Context) error {
	c := cron.New()
	if err := c.AddFunc("@every 15m", app.clearExpiredResetTokens); err != nil {
		return err
	}
	if err := c.AddFunc("@hourly", app.reportUnpaidOrders); err != nil {
		return err
	}

	c.Start()
	app.infoLog.Printf("Housekeeping scheduled (%d jobs)", len(c.Entries()))

	<-ctx.Done()
	c.Stop()
	return nil
}

func (app *application) clearExpiredResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := app.users.ClearExpiredResetTokens(ctx, app.now())
	if err != nil {
		app.errorLog.Println("Failed to clear expired reset tokens:", err)
		return
	}
	if n > 0 {
		app.infoLog.Printf("Cleared %d expired reset tokens", n)
	}
}

func (app *application) reportUnpaidOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	orders, err := app.orders.ListUnpaidBefore(ctx, app.now().Add(-unpaidAfter))
	if err != nil {
		app.errorLog.Println("Failed to list unpaid orders:", err)
		return
	}
	for _, o := range orders {
		app.infoLog.Printf("Order %s by user %s unpaid since %s (total %.2f)",
			o.ID.Hex(), o.User.Hex(), o.CreatedAt.Format(time.RFC3339), o.TotalPrice)
	}
}
