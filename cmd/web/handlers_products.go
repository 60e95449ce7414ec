package main

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// --- CATALOG HANDLERS ---

func (app *application) getAllProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseProductFilter(r.URL.Query())
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	products, filtered, err := app.products.Search(r.Context(), filter)
	if err != nil {
		app.serverError(w, err)
		return
	}

	total, err := app.products.Count(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{
		"success":               true,
		"products":              products,
		"productsCount":         total,
		"filteredProductsCount": filtered,
		"resultPerPage":         filter.PerPage,
	})
}

func (app *application) getProductDetails(w http.ResponseWriter, r *http.Request) {
	product, ok := app.lookupProduct(w, r, r.URL.Query().Get(":id"))
	if !ok {
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "product": product})
}

// lookupProduct writes the error response itself and reports false when
// the product cannot be loaded.
func (app *application) lookupProduct(w http.ResponseWriter, r *http.Request, hex string) (*models.Product, bool) {
	id, err := models.ParseID(hex)
	if err != nil {
		app.errorResponse(w, err)
		return nil, false
	}

	product, err := app.products.Get(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "Product not found")
		return nil, false
	}
	if err != nil {
		app.serverError(w, err)
		return nil, false
	}
	return product, true
}

// --- ADMIN PRODUCT HANDLERS ---

type productInput struct {
	Name        string         `json:"name" validate:"required,max=100"`
	Description string         `json:"description" validate:"required"`
	Price       float64        `json:"price" validate:"gte=0"`
	Category    string         `json:"category" validate:"required"`
	Stock       int            `json:"stock" validate:"gte=0"`
	Images      []models.Image `json:"images"`
}

func (app *application) createProduct(w http.ResponseWriter, r *http.Request) {
	var input productInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		Images:      input.Images,
		User:        app.currentUser(r).ID,
	}
	if err := app.products.Insert(r.Context(), product); err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, envelope{"success": true, "product": product})
}

func (app *application) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	var input models.ProductUpdate
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	product, err := app.products.Update(r.Context(), id, input)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "product": product})
}

func (app *application) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	err = app.products.Delete(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Product deleted successfully"})
}

// --- PRODUCT REVIEW HANDLERS ---

type productReviewInput struct {
	ProductID string `json:"productId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment"`
}

// createProductReview adds the caller's review or overwrites the one they
// already left on the product.
func (app *application) createProductReview(w http.ResponseWriter, r *http.Request) {
	var input productReviewInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	product, ok := app.lookupProduct(w, r, input.ProductID)
	if !ok {
		return
	}

	user := app.currentUser(r)
	product.UpsertReview(models.Review{
		User:    user.ID,
		Name:    user.Name,
		Rating:  input.Rating,
		Comment: input.Comment,
	})

	if err := app.products.SaveReviews(r.Context(), product); err != nil {
		app.errorResponse(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true})
}

func (app *application) getProductReviews(w http.ResponseWriter, r *http.Request) {
	product, ok := app.lookupProduct(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}

	reviews := product.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "reviews": reviews})
}

func (app *application) deleteProductReview(w http.ResponseWriter, r *http.Request) {
	product, ok := app.lookupProduct(w, r, r.URL.Query().Get("productId"))
	if !ok {
		return
	}

	reviewID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("id"))
	if err != nil {
		app.errorResponse(w, models.ErrInvalidID)
		return
	}

	if !product.RemoveReview(reviewID) {
		app.writeError(w, http.StatusNotFound, "Review not found")
		return
	}

	if err := app.products.SaveReviews(r.Context(), product); err != nil {
		app.errorResponse(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Review deleted successfully"})
}
