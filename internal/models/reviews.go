package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReviewModel struct {
	Collection *mongo.Collection
}

func (m *ReviewModel) Insert(ctx context.Context, r *ReviewRecord) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := m.Collection.InsertOne(ctx, r)
	return err
}

func (m *ReviewModel) ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]*ReviewRecord, error) {
	cur, err := m.Collection.Find(ctx, bson.M{"product": productID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reviews := []*ReviewRecord{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (m *ReviewModel) DeleteAll(ctx context.Context) error {
	_, err := m.Collection.DeleteMany(ctx, bson.M{})
	return err
}
