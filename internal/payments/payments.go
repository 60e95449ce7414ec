// Package payments talks to the hosted-checkout payment processor: it opens
// checkout sessions for an order's line items and turns the processor's
// signed webhook callbacks into payment confirmations.
package payments

import (
	"context"
	"errors"
	"math"
)

var ErrBadSignature = errors.New("payments: webhook signature verification failed")

type LineItem struct {
	Name     string
	Image    string
	Price    float64
	Quantity int
}

type CheckoutRequest struct {
	Items         []LineItem
	CustomerEmail string
	UserID        string
	OrderID       string
}

type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// Event is a processor notification reduced to what order bookkeeping needs.
type Event struct {
	Type      string
	SessionID string
	OrderID   string
	PaymentID string
	Paid      bool
}

const EventCheckoutCompleted = "checkout.session.completed"

type Processor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// toMinorUnits converts a decimal price into cents.
func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
