package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var DefaultProductImage = Image{
	PublicID: "default_product_id",
	URL:      "https://placehold.co/400x300/cccccc/ffffff?text=Product",
}

type ProductModel struct {
	Collection *mongo.Collection
}

func (m *ProductModel) Insert(ctx context.Context, p *Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if len(p.Images) == 0 {
		p.Images = []Image{DefaultProductImage}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
	p.recomputeRatings()

	_, err := m.Collection.InsertOne(ctx, p)
	return err
}

func (m *ProductModel) Get(ctx context.Context, id primitive.ObjectID) (*Product, error) {
	var p Product
	err := m.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetMany loads the products named by ids. Missing ids are absent from the map.
func (m *ProductModel) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*Product, error) {
	cur, err := m.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var products []*Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]*Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// ProductUpdate holds the admin-editable fields; nil fields are left alone.
type ProductUpdate struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Images      []Image  `json:"images"`
}

func (u ProductUpdate) set() bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Images != nil {
		set["images"] = u.Images
	}
	return set
}

func (m *ProductModel) Update(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*Product, error) {
	set := u.set()
	if len(set) == 0 {
		return m.Get(ctx, id)
	}

	var p Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := m.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (m *ProductModel) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNoRecord
	}
	return nil
}

func (m *ProductModel) Count(ctx context.Context) (int64, error) {
	return m.Collection.CountDocuments(ctx, bson.M{})
}

// Search returns one page of products matching f together with the number
// of products matching f across all pages.
func (m *ProductModel) Search(ctx context.Context, f ProductFilter) ([]*Product, int64, error) {
	filter, opts := f.Query()

	total, err := m.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := m.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	products := []*Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SaveReviews writes back the review list and its derived aggregates. The
// write only lands if no other save happened since p was read; otherwise it
// returns ErrEditConflict and p must be reloaded.
func (m *ProductModel) SaveReviews(ctx context.Context, p *Product) error {
	p.recomputeRatings()

	filter := bson.M{"_id": p.ID, "reviewsVersion": p.ReviewsVersion}
	if p.ReviewsVersion == 0 {
		// products stored before the counter existed have no field at all
		filter["reviewsVersion"] = bson.M{"$in": bson.A{nil, 0}}
	}
	res, err := m.Collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"reviews":      p.Reviews,
			"ratings":      p.Ratings,
			"numOfReviews": p.NumOfReviews,
		},
		"$inc": bson.M{"reviewsVersion": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := m.Collection.CountDocuments(ctx, bson.M{"_id": p.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoRecord
		}
		return ErrEditConflict
	}
	p.ReviewsVersion++
	return nil
}

// DecrementStock lowers stock by qty in a single server-side update, never
// going below zero.
func (m *ProductModel) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$stock", qty}}}},
		}}},
	}
	res, err := m.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoRecord
	}
	return nil
}

// UpsertReview records r as the author's only review of p: an existing
// review by the same user is overwritten in place, otherwise r is appended.
// It reports whether a new review was added.
func (p *Product) UpsertReview(r Review) bool {
	for i := range p.Reviews {
		if p.Reviews[i].User == r.User {
			p.Reviews[i].Rating = r.Rating
			p.Reviews[i].Comment = r.Comment
			p.recomputeRatings()
			return false
		}
	}

	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	p.Reviews = append(p.Reviews, r)
	p.recomputeRatings()
	return true
}

func (p *Product) RemoveReview(id primitive.ObjectID) bool {
	kept := make([]Review, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(p.Reviews)
	p.Reviews = kept
	p.recomputeRatings()
	return removed
}

func (p *Product) recomputeRatings() {
	p.NumOfReviews = len(p.Reviews)
	if p.NumOfReviews == 0 {
		p.Ratings = 0
		return
	}

	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Ratings = float64(sum) / float64(p.NumOfReviews)
}
