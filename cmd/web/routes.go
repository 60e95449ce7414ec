package main

import (
	"net/http"

	"github.com/bmizerany/pat"

	"storefront/internal/auth"
)

func (app *application) routes() http.Handler {
	mux := pat.New()
	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.notFound(w)
	})

	// users
	mux.Post("/api/v1/register", http.HandlerFunc(app.registerUser))
	mux.Post("/api/v1/login", http.HandlerFunc(app.loginUser))
	mux.Get("/api/v1/logout", http.HandlerFunc(app.logoutUser))
	mux.Post("/api/v1/password/forgot", http.HandlerFunc(app.forgotPassword))
	mux.Put("/api/v1/password/reset/:token", http.HandlerFunc(app.resetPassword))
	mux.Get("/api/v1/me", app.requireAuthentication(app.getUserDetails))
	mux.Put("/api/v1/me/update", app.requireAuthentication(app.updateProfile))
	mux.Put("/api/v1/password/update", app.requireAuthentication(app.updatePassword))
	mux.Get("/api/v1/admin/users", app.requireCapability(auth.ManageUsers, app.getAllUsers))
	mux.Get("/api/v1/admin/user/:id", app.requireCapability(auth.ManageUsers, app.getSingleUser))
	mux.Put("/api/v1/admin/user/:id", app.requireCapability(auth.ManageUsers, app.updateUserRole))
	mux.Del("/api/v1/admin/user/:id", app.requireCapability(auth.ManageUsers, app.deleteUser))

	// catalog
	mux.Get("/api/v1/products", http.HandlerFunc(app.getAllProducts))
	mux.Get("/api/v1/product/:id", http.HandlerFunc(app.getProductDetails))
	mux.Post("/api/v1/admin/products/new", app.requireCapability(auth.ManageProducts, app.createProduct))
	mux.Put("/api/v1/admin/product/:id", app.requireCapability(auth.ManageProducts, app.updateProduct))
	mux.Del("/api/v1/admin/product/:id", app.requireCapability(auth.ManageProducts, app.deleteProduct))
	mux.Put("/api/v1/review", app.requireAuthentication(app.createProductReview))
	mux.Get("/api/v1/reviews", http.HandlerFunc(app.getProductReviews))
	mux.Del("/api/v1/admin/reviews", app.requireCapability(auth.ModerateReviews, app.deleteProductReview))

	// orders
	mux.Post("/api/v1/order/new", app.requireAuthentication(app.newOrder))
	mux.Get("/api/v1/order/:id", app.requireAuthentication(app.getSingleOrder))
	mux.Get("/api/v1/orders/me", app.requireAuthentication(app.myOrders))
	mux.Get("/api/v1/admin/orders", app.requireCapability(auth.ManageOrders, app.getAllOrders))
	mux.Put("/api/v1/admin/order/:id", app.requireCapability(auth.ManageOrders, app.updateOrder))
	mux.Del("/api/v1/admin/order/:id", app.requireCapability(auth.ManageOrders, app.deleteOrder))

	// payment
	mux.Post("/api/v1/payment/checkout", app.requireAuthentication(app.createCheckoutSession))
	mux.Post("/api/v1/payment/webhook", http.HandlerFunc(app.paymentWebhook))

	// coupons
	mux.Post("/api/coupons/apply", http.HandlerFunc(app.applyCoupon))
	mux.Get("/api/v1/coupons", http.HandlerFunc(app.listCoupons))
	mux.Post("/api/v1/admin/coupons/new", app.requireCapability(auth.ManageCoupons, app.createCoupon))

	// standalone reviews
	mux.Post("/api/reviews", app.requireAuthentication(app.createReview))
	mux.Get("/api/reviews/:productId", http.HandlerFunc(app.listReviews))

	// "/" matches every GET path, so it has to be registered last.
	mux.Get("/", http.HandlerFunc(app.health))

	return app.recoverPanic(app.logRequest(app.cors(app.session.LoadAndSave(app.authenticate(mux)))))
}

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		app.notFound(w)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"message":     "API is running...",
		"environment": app.env,
	})
}
