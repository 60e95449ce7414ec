package main

import (
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/models"
)

// --- ORDER HANDLERS ---

type newOrderInput struct {
	ShippingInfo  models.ShippingInfo `json:"shippingInfo" validate:"required"`
	OrderItems    []models.OrderItem  `json:"orderItems" validate:"required,min=1,dive"`
	ItemsPrice    float64             `json:"itemsPrice" validate:"gte=0"`
	TaxPrice      float64             `json:"taxPrice" validate:"gte=0"`
	ShippingPrice float64             `json:"shippingPrice" validate:"gte=0"`
	Discount      float64             `json:"discount" validate:"gte=0"`
	TotalPrice    float64             `json:"totalPrice" validate:"gte=0"`
	CouponCode    string              `json:"couponCode"`
}

func (in *newOrderInput) unpriced() bool {
	return in.ItemsPrice == 0 && in.TaxPrice == 0 && in.ShippingPrice == 0 && in.TotalPrice == 0
}

// newOrder stores the submitted cart as an order. Prices arrive already
// computed by the checkout page and are kept as sent; a submission without
// any totals is priced here from its line items.
func (app *application) newOrder(w http.ResponseWriter, r *http.Request) {
	var input newOrderInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	order := &models.Order{
		ShippingInfo:  input.ShippingInfo,
		OrderItems:    input.OrderItems,
		User:          app.currentUser(r).ID,
		PaymentInfo:   models.PaymentInfo{Status: models.PaymentPending},
		ItemsPrice:    input.ItemsPrice,
		TaxPrice:      input.TaxPrice,
		ShippingPrice: input.ShippingPrice,
		Discount:      input.Discount,
		CouponCode:    input.CouponCode,
		TotalPrice:    input.TotalPrice,
		OrderStatus:   models.StatusProcessing,
		CreatedAt:     app.now(),
	}

	if input.unpriced() {
		percent, err := app.redeemableDiscount(r, input.CouponCode)
		if err != nil {
			app.errorResponse(w, err)
			return
		}
		totals := cart.Quote(cart.ItemsPrice(cartItems(input.OrderItems)), percent)
		order.ItemsPrice = totals.ItemsPrice
		order.ShippingPrice = totals.ShippingPrice
		order.TaxPrice = totals.TaxPrice
		order.Discount = totals.Discount
		order.TotalPrice = totals.TotalPrice
	}

	if err := app.orders.Insert(r.Context(), order); err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, envelope{"success": true, "order": order})
}

func cartItems(items []models.OrderItem) []cart.Item {
	out := make([]cart.Item, 0, len(items))
	for _, it := range items {
		out = append(out, cart.Item{
			Product: it.Product.Hex(),
			Name:    it.Name,
			Image:   it.Image,
			Price:   it.Price,
			Qty:     it.Quantity,
		})
	}
	return out
}

// populatedItem and orderDetail shadow the stored id references with the
// documents they point to.
type populatedItem struct {
	models.OrderItem
	Product *models.Product `json:"product"`
}

type orderDetail struct {
	*models.Order
	User       *models.UserRef `json:"user"`
	OrderItems []populatedItem `json:"orderItems"`
}

func (app *application) getSingleOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := app.lookupOrder(w, r)
	if !ok {
		return
	}

	user := app.currentUser(r)
	if order.User != user.ID && !user.Role.Can(auth.ManageOrders) {
		app.writeError(w, http.StatusForbidden, "You are not authorized to view this order")
		return
	}

	detail, err := app.populateOrder(r, order)
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "order": detail})
}

// populateOrder loads the owner and the ordered products side by side.
// References that no longer resolve are left null.
func (app *application) populateOrder(r *http.Request, order *models.Order) (*orderDetail, error) {
	var (
		owner    *models.User
		products map[primitive.ObjectID]*models.Product
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		u, err := app.users.Get(ctx, order.User)
		if errors.Is(err, models.ErrNoRecord) {
			return nil
		}
		owner = u
		return err
	})
	g.Go(func() error {
		ids := make([]primitive.ObjectID, 0, len(order.OrderItems))
		for _, it := range order.OrderItems {
			ids = append(ids, it.Product)
		}
		var err error
		products, err = app.products.GetMany(ctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail := &orderDetail{Order: order, OrderItems: make([]populatedItem, 0, len(order.OrderItems))}
	if owner != nil {
		detail.User = owner.Ref()
	}
	for _, it := range order.OrderItems {
		detail.OrderItems = append(detail.OrderItems, populatedItem{OrderItem: it, Product: products[it.Product]})
	}
	return detail, nil
}

func (app *application) lookupOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return nil, false
	}

	order, err := app.orders.Get(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "Order not found with this Id")
		return nil, false
	}
	if err != nil {
		app.serverError(w, err)
		return nil, false
	}
	return order, true
}

func (app *application) myOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := app.orders.ListByUser(r.Context(), app.currentUser(r).ID)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "orders": orders})
}

// --- ADMIN ORDER HANDLERS ---

func (app *application) getAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, total, err := app.orders.ListAll(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "totalAmount": total, "orders": orders})
}

// updateOrder advances fulfillment. Stock is taken out exactly once, by the
// request whose compare-and-set moves the order out of Processing.
func (app *application) updateOrder(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status" validate:"required"`
	}
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	order, ok := app.lookupOrder(w, r)
	if !ok {
		return
	}

	t, err := models.PlanTransition(order.OrderStatus, models.OrderStatus(input.Status))
	switch {
	case errors.Is(err, models.ErrOrderDelivered):
		app.writeError(w, http.StatusBadRequest, "You have already delivered this order")
		return
	case errors.Is(err, models.ErrUnknownStatus):
		app.writeError(w, http.StatusBadRequest, "Invalid order status: "+input.Status)
		return
	case errors.Is(err, models.ErrInvalidTransition):
		app.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Cannot move order from %s back to %s", order.OrderStatus, input.Status))
		return
	case err != nil:
		app.serverError(w, err)
		return
	}

	err = app.orders.ApplyTransition(r.Context(), order.ID, t, app.now())
	if errors.Is(err, models.ErrStatusConflict) {
		app.writeError(w, http.StatusConflict, "Order status was changed by another request, please retry")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	if t.DecrementStock {
		if err := app.releaseStock(r, order); err != nil {
			app.serverError(w, err)
			return
		}
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true})
}

func (app *application) releaseStock(r *http.Request, order *models.Order) error {
	for _, it := range order.OrderItems {
		err := app.products.DecrementStock(r.Context(), it.Product, it.Quantity)
		if errors.Is(err, models.ErrNoRecord) {
			app.errorLog.Printf("Product with ID %s not found during stock update for order %s",
				it.Product.Hex(), order.ID.Hex())
			continue
		}
		if err != nil {
			return fmt.Errorf("stock update for order %s: %w", order.ID.Hex(), err)
		}
	}
	return nil
}

func (app *application) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	err = app.orders.Delete(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "Order not found with this Id")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Order deleted successfully"})
}
