package main

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/payments"
)

// --- COUPON HANDLERS ---

// redeemableDiscount returns the percentage code grants now. An empty code
// grants nothing.
func (app *application) redeemableDiscount(r *http.Request, code string) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, nil
	}

	coupon, err := app.coupons.GetByCode(r.Context(), code)
	if errors.Is(err, models.ErrNoRecord) {
		return 0, newAPIError(http.StatusNotFound, "Invalid coupon code")
	}
	if err != nil {
		return 0, err
	}
	if coupon.Expired(app.now()) {
		return 0, newAPIError(http.StatusBadRequest, "Coupon has expired")
	}
	return coupon.DiscountPercent, nil
}

func (app *application) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Code string `json:"code" validate:"required"`
	}
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	percent, err := app.redeemableDiscount(r, input.Code)
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "discountPercent": percent})
}

func (app *application) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := app.coupons.ListActive(r.Context(), app.now())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "coupons": coupons})
}

type couponInput struct {
	Code            string    `json:"code" validate:"required,max=32"`
	DiscountPercent int       `json:"discountPercent" validate:"required,min=1,max=100"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

func (app *application) createCoupon(w http.ResponseWriter, r *http.Request) {
	var input couponInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}
	if !input.ExpiresAt.After(app.now()) {
		app.writeError(w, http.StatusBadRequest, "expiresAt must be in the future")
		return
	}

	coupon := &models.Coupon{
		Code:            strings.TrimSpace(input.Code),
		DiscountPercent: input.DiscountPercent,
		ExpiresAt:       input.ExpiresAt,
	}
	if err := app.coupons.Insert(r.Context(), coupon); err != nil {
		app.errorResponse(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, envelope{"success": true, "coupon": coupon})
}

// --- PAYMENT HANDLERS ---

type checkoutInput struct {
	OrderItems   []models.OrderItem  `json:"orderItems"`
	ShippingInfo models.ShippingInfo `json:"shippingInfo"`
	OrderID      string              `json:"orderId"`
}

func (app *application) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var input checkoutInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}
	if input.OrderItems == nil {
		app.writeError(w, http.StatusBadRequest, "orderItems must be an array")
		return
	}

	user := app.currentUser(r)
	req := payments.CheckoutRequest{
		Items:         make([]payments.LineItem, 0, len(input.OrderItems)),
		CustomerEmail: user.Email,
		UserID:        user.ID.Hex(),
	}
	for _, it := range input.OrderItems {
		req.Items = append(req.Items, payments.LineItem{
			Name:     it.Name,
			Image:    it.Image,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	if input.OrderID != "" {
		order, err := app.ownedOrder(r, input.OrderID)
		if err != nil {
			app.errorResponse(w, err)
			return
		}
		req.OrderID = order.ID.Hex()
	}

	session, err := app.payments.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		app.errorLog.Printf("checkout session for user %s: %v", user.ID.Hex(), err)
		app.writeError(w, http.StatusBadGateway, "Payment processor unavailable, please retry")
		return
	}

	if req.OrderID != "" {
		orderID, _ := models.ParseID(req.OrderID)
		if err := app.orders.AttachPaymentSession(r.Context(), orderID, user.ID, session.ID); err != nil {
			app.errorResponse(w, err)
			return
		}
	}

	app.writeJSON(w, http.StatusOK, session)
}

// ownedOrder loads the order named by hex if it belongs to the caller.
func (app *application) ownedOrder(r *http.Request, hex string) (*models.Order, error) {
	id, err := models.ParseID(hex)
	if err != nil {
		return nil, err
	}

	order, err := app.orders.Get(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, newAPIError(http.StatusNotFound, "Order not found with this Id")
	}
	if err != nil {
		return nil, err
	}
	if order.User != app.currentUser(r).ID {
		return nil, newAPIError(http.StatusForbidden, "You are not authorized to pay for this order")
	}
	return order, nil
}

const maxWebhookBytes = 64 << 10

// paymentWebhook records confirmed payments. Anything but a signature
// failure or a store fault is acknowledged so the processor stops retrying.
func (app *application) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		app.writeError(w, http.StatusBadRequest, "Unable to read webhook body")
		return
	}

	event, err := app.payments.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, payments.ErrBadSignature) {
		app.writeError(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}
	if err != nil {
		app.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if event.Type != payments.EventCheckoutCompleted || !event.Paid || event.OrderID == "" {
		app.writeJSON(w, http.StatusOK, envelope{"received": true})
		return
	}

	orderID, err := models.ParseID(event.OrderID)
	if err != nil {
		app.errorLog.Printf("webhook for session %s names bad order id %q", event.SessionID, event.OrderID)
		app.writeJSON(w, http.StatusOK, envelope{"received": true})
		return
	}

	err = app.orders.MarkPaid(r.Context(), orderID, event.PaymentID, app.now())
	if errors.Is(err, models.ErrNoRecord) {
		app.errorLog.Printf("webhook for session %s: order %s not found", event.SessionID, event.OrderID)
		app.writeJSON(w, http.StatusOK, envelope{"received": true})
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.infoLog.Printf("order %s paid via %s", event.OrderID, event.PaymentID)
	app.writeJSON(w, http.StatusOK, envelope{"received": true})
}

// --- REVIEW HANDLERS ---

type reviewInput struct {
	ProductID string `json:"productId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required"`
}

func (app *application) createReview(w http.ResponseWriter, r *http.Request) {
	var input reviewInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}
	if err := app.validateStruct(&input); err != nil {
		app.writeError(w, http.StatusBadRequest, "Review creation failed: "+err.Error())
		return
	}

	productID, err := models.ParseID(input.ProductID)
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	review := &models.ReviewRecord{
		User:      app.currentUser(r).ID,
		Product:   productID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: app.now(),
	}
	if err := app.reviews.Insert(r.Context(), review); err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, review)
}

type reviewView struct {
	*models.ReviewRecord
	User *models.UserRef `json:"user"`
}

func (app *application) listReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := app.idParam(r, ":productId")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	records, err := app.reviews.ListByProduct(r.Context(), productID)
	if err != nil {
		app.serverError(w, err)
		return
	}

	names := map[string]*models.UserRef{}
	views := make([]reviewView, 0, len(records))
	for _, rec := range records {
		key := rec.User.Hex()
		ref, seen := names[key]
		if !seen {
			u, err := app.users.Get(r.Context(), rec.User)
			switch {
			case err == nil:
				ref = &models.UserRef{ID: u.ID, Name: u.Name}
			case !errors.Is(err, models.ErrNoRecord):
				app.serverError(w, err)
				return
			}
			names[key] = ref
		}
		views = append(views, reviewView{ReviewRecord: rec, User: ref})
	}

	app.writeJSON(w, http.StatusOK, views)
}
