package main

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/models"
)

func TestReportUnpaidOrders(t *testing.T) {
	app := newTestApplication(t)
	var buf bytes.Buffer
	app.infoLog = log.New(&buf, "", 0)

	stale := &models.Order{User: primitive.NewObjectID(), TotalPrice: 42, CreatedAt: testNow.Add(-48 * time.Hour)}
	paid := &models.Order{
		User:        primitive.NewObjectID(),
		CreatedAt:   testNow.Add(-48 * time.Hour),
		PaymentInfo: models.PaymentInfo{Status: models.PaymentSucceeded},
	}
	fresh := &models.Order{User: primitive.NewObjectID(), CreatedAt: testNow.Add(-time.Hour)}
	for _, o := range []*models.Order{stale, paid, fresh} {
		require.NoError(t, app.orders.Insert(context.Background(), o))
	}

	app.reportUnpaidOrders()

	out := buf.String()
	assert.Contains(t, out, stale.ID.Hex())
	assert.Contains(t, out, "total 42.00")
	assert.NotContains(t, out, paid.ID.Hex())
	assert.NotContains(t, out, fresh.ID.Hex())
}

func TestClearExpiredResetTokens(t *testing.T) {
	app := newTestApplication(t)
	var buf bytes.Buffer
	app.infoLog = log.New(&buf, "", 0)

	addUser(t, app, "Shopper", auth.RoleUser)
	_, _, err := app.users.CreateResetToken(context.Background(), "shopper@example.com", testNow)
	require.NoError(t, err)

	app.clearExpiredResetTokens()

	assert.Contains(t, buf.String(), "Cleared 1 expired reset tokens")
	assert.Empty(t, app.users.(*fakeUsers).resets)
}

func TestRunHousekeepingStopsWithContext(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.runHousekeeping(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("housekeeping did not stop")
	}
}
