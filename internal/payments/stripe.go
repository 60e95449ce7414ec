package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

var allowedCountries = []string{"US", "CA", "IN"}

type StripeProcessor struct {
	sessions      session.Client
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

func NewStripeProcessor(secretKey, webhookSecret, currency, baseURL string) *StripeProcessor {
	return &StripeProcessor{
		sessions:      session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		webhookSecret: webhookSecret,
		currency:      currency,
		successURL:    baseURL + "/orders/me",
		cancelURL:     baseURL + "/cart",
	}
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := p.sessionParams(req)
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProcessor) sessionParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Image != "" {
			product.Images = stripe.StringSlice([]string{it.Image})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(toMinorUnits(it.Price)),
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(allowedCountries),
		},
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("userId", req.UserID)
	if req.OrderID != "" {
		params.AddMetadata("orderId", req.OrderID)
		params.ClientReferenceID = stripe.String(req.OrderID)
	}
	return params
}

func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	ev := &Event{Type: string(event.Type)}
	if ev.Type != EventCheckoutCompleted {
		return ev, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	ev.SessionID = s.ID
	ev.OrderID = s.Metadata["orderId"]
	if ev.OrderID == "" {
		ev.OrderID = s.ClientReferenceID
	}
	ev.PaymentID = s.ID
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		ev.PaymentID = s.PaymentIntent.ID
	}
	ev.Paid = s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	return ev, nil
}
