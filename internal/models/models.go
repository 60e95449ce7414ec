package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
)

type Image struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url" json:"url"`
}

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name                string             `bson:"name" json:"name"`
	Email               string             `bson:"email" json:"email"`
	PasswordHash        string             `bson:"password,omitempty" json:"-"`
	Avatar              Image              `bson:"avatar" json:"avatar"`
	Role                auth.Role          `bson:"role" json:"role"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	ResetPasswordToken  string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire *time.Time         `bson:"resetPasswordExpire,omitempty" json:"-"`
}

// UserRef is the subset of a user embedded in populated responses.
type UserRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
}

func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Review is a rating embedded in a product document.
type Review struct {
	ID      primitive.ObjectID `bson:"_id" json:"_id"`
	User    primitive.ObjectID `bson:"user" json:"user"`
	Name    string             `bson:"name" json:"name"`
	Rating  int                `bson:"rating" json:"rating"`
	Comment string             `bson:"comment" json:"comment"`
}

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Price        float64            `bson:"price" json:"price"`
	Ratings      float64            `bson:"ratings" json:"ratings"`
	Images       []Image            `bson:"images" json:"images"`
	Category     string             `bson:"category" json:"category"`
	Stock        int                `bson:"stock" json:"stock"`
	NumOfReviews int                `bson:"numOfReviews" json:"numOfReviews"`
	Reviews      []Review           `bson:"reviews" json:"reviews"`
	User         primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`

	// ReviewsVersion counts review saves; SaveReviews matches on it.
	ReviewsVersion int `bson:"reviewsVersion" json:"-"`
}

type ShippingInfo struct {
	Address    string `bson:"address" json:"address" validate:"required"`
	City       string `bson:"city" json:"city" validate:"required"`
	State      string `bson:"state" json:"state"`
	Country    string `bson:"country" json:"country" validate:"required"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	PhoneNo    string `bson:"phoneNo" json:"phoneNo" validate:"required"`
	FullName   string `bson:"fullName" json:"fullName"`
}

// OrderItem is a snapshot of a cart line taken when the order is placed.
// It is never refreshed from the live product.
type OrderItem struct {
	Name     string             `bson:"name" json:"name" validate:"required"`
	Price    float64            `bson:"price" json:"price" validate:"gte=0"`
	Quantity int                `bson:"quantity" json:"quantity" validate:"gte=1"`
	Image    string             `bson:"image" json:"image"`
	Product  primitive.ObjectID `bson:"product" json:"product" validate:"required"`
}

type PaymentInfo struct {
	ID     string `bson:"id" json:"id"`
	Status string `bson:"status" json:"status"`
}

const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
)

type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ShippingInfo  ShippingInfo       `bson:"shippingInfo" json:"shippingInfo"`
	OrderItems    []OrderItem        `bson:"orderItems" json:"orderItems"`
	User          primitive.ObjectID `bson:"user" json:"user"`
	PaymentInfo   PaymentInfo        `bson:"paymentInfo" json:"paymentInfo"`
	PaidAt        *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	ItemsPrice    float64            `bson:"itemsPrice" json:"itemsPrice"`
	TaxPrice      float64            `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice float64            `bson:"shippingPrice" json:"shippingPrice"`
	Discount      float64            `bson:"discount" json:"discount"`
	CouponCode    string             `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	TotalPrice    float64            `bson:"totalPrice" json:"totalPrice"`
	OrderStatus   OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	DeliveredAt   *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

type Coupon struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Code            string             `bson:"code" json:"code"`
	DiscountPercent int                `bson:"discountPercent" json:"discountPercent"`
	ExpiresAt       time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ReviewRecord lives in its own collection, separate from the reviews
// embedded in products.
type ReviewRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Product   primitive.ObjectID `bson:"product" json:"product"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
