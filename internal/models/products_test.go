package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func meanRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

func assertAggregates(t *testing.T, p *Product) {
	t.Helper()
	assert.Equal(t, len(p.Reviews), p.NumOfReviews)
	assert.InDelta(t, meanRating(p.Reviews), p.Ratings, 1e-9)
}

func TestProduct_UpsertReview(t *testing.T) {
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	p := &Product{}

	assert.True(t, p.UpsertReview(Review{User: alice, Name: "alice", Rating: 4, Comment: "good"}))
	assertAggregates(t, p)
	assert.Equal(t, 4.0, p.Ratings)

	assert.True(t, p.UpsertReview(Review{User: bob, Name: "bob", Rating: 2, Comment: "meh"}))
	assertAggregates(t, p)
	assert.Equal(t, 3.0, p.Ratings)

	firstID := p.Reviews[0].ID
	assert.False(t, p.UpsertReview(Review{User: alice, Rating: 5, Comment: "great"}))
	assertAggregates(t, p)

	require.Len(t, p.Reviews, 2, "second review by the same user replaces the first")
	assert.Equal(t, firstID, p.Reviews[0].ID)
	assert.Equal(t, "great", p.Reviews[0].Comment)
	assert.Equal(t, "alice", p.Reviews[0].Name)
	assert.Equal(t, 3.5, p.Ratings)
}

func TestProduct_RemoveReview(t *testing.T) {
	p := &Product{}
	p.UpsertReview(Review{User: primitive.NewObjectID(), Rating: 5})
	p.UpsertReview(Review{User: primitive.NewObjectID(), Rating: 1})

	assert.False(t, p.RemoveReview(primitive.NewObjectID()))
	assertAggregates(t, p)

	assert.True(t, p.RemoveReview(p.Reviews[0].ID))
	assertAggregates(t, p)
	assert.Equal(t, 1.0, p.Ratings)

	assert.True(t, p.RemoveReview(p.Reviews[0].ID))
	assertAggregates(t, p)
	assert.Equal(t, 0.0, p.Ratings)
	assert.Equal(t, 0, p.NumOfReviews)
}

func TestProductUpdate_Set(t *testing.T) {
	name := "Lamp"
	stock := 0

	set := ProductUpdate{Name: &name, Stock: &stock}.set()
	assert.Equal(t, "Lamp", set["name"])
	assert.Equal(t, 0, set["stock"])
	assert.NotContains(t, set, "price")

	assert.Empty(t, ProductUpdate{}.set())
}
