package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Expired reports whether the coupon can no longer be redeemed at now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

type CouponModel struct {
	Collection *mongo.Collection
}

func (m *CouponModel) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon
	err := m.Collection.FindOne(ctx, bson.M{"code": code}).Decode(&c)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *CouponModel) Insert(ctx context.Context, c *Coupon) error {
	now := time.Now()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := m.Collection.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return &DuplicateError{Field: "code"}
	}
	return err
}

// Upsert creates or replaces the coupon with c.Code.
func (m *CouponModel) Upsert(ctx context.Context, c *Coupon) error {
	now := time.Now()
	c.UpdatedAt = now
	_, err := m.Collection.UpdateOne(ctx,
		bson.M{"code": c.Code},
		bson.M{
			"$set": bson.M{
				"discountPercent": c.DiscountPercent,
				"expiresAt":       c.ExpiresAt,
				"updatedAt":       now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *CouponModel) ListActive(ctx context.Context, now time.Time) ([]*Coupon, error) {
	cur, err := m.Collection.Find(ctx, bson.M{"expiresAt": bson.M{"$gte": now}},
		options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	coupons := []*Coupon{}
	if err := cur.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}
