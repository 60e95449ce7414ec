package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// The handlers depend on these instead of the concrete Mongo models so they
// can be exercised against in-memory stores.

type userStore interface {
	Insert(ctx context.Context, name, email, password string, role auth.Role) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, u repository.UserUpdate) error
	ChangePassword(ctx context.Context, id primitive.ObjectID, oldPassword, newPassword string) (*models.User, error)
	CreateResetToken(ctx context.Context, email string, now time.Time) (string, *models.User, error)
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	ResetPassword(ctx context.Context, token, password string, now time.Time) (*models.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type productStore interface {
	Insert(ctx context.Context, p *models.Product) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, u models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, f models.ProductFilter) ([]*models.Product, int64, error)
	SaveReviews(ctx context.Context, p *models.Product) error
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type orderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, float64, error)
	ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]*models.Order, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, t models.Transition, now time.Time) error
	AttachPaymentSession(ctx context.Context, id, userID primitive.ObjectID, sessionID string) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, paymentID string, paidAt time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type couponStore interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Insert(ctx context.Context, c *models.Coupon) error
	ListActive(ctx context.Context, now time.Time) ([]*models.Coupon, error)
}

type reviewStore interface {
	Insert(ctx context.Context, r *models.ReviewRecord) error
	ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]*models.ReviewRecord, error)
}

var (
	_ userStore    = (*repository.UserRepository)(nil)
	_ productStore = (*models.ProductModel)(nil)
	_ orderStore   = (*models.OrderModel)(nil)
	_ couponStore  = (*models.CouponModel)(nil)
	_ reviewStore  = (*models.ReviewModel)(nil)
)
