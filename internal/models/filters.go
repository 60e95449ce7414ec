package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ResultPerPage = 10

// Range is an optional numeric bound set; nil bounds are not applied.
type Range struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

func (r Range) empty() bool {
	return r.GT == nil && r.GTE == nil && r.LT == nil && r.LTE == nil
}

func (r Range) bson() bson.M {
	m := bson.M{}
	if r.GT != nil {
		m["$gt"] = *r.GT
	}
	if r.GTE != nil {
		m["$gte"] = *r.GTE
	}
	if r.LT != nil {
		m["$lt"] = *r.LT
	}
	if r.LTE != nil {
		m["$lte"] = *r.LTE
	}
	return m
}

// ProductFilter is the catalog search request. It is a plain value; Query
// is the only place it is turned into a store query.
type ProductFilter struct {
	Keyword  string
	Category string
	Price    Range
	Ratings  Range
	Page     int
	PerPage  int
}

var rangeKey = regexp.MustCompile(`^(price|ratings)\[(gt|gte|lt|lte)\]$`)

// ParseProductFilter reads keyword, category, page and price/ratings bounds
// written as price[gte]=10.
func ParseProductFilter(q url.Values) (ProductFilter, error) {
	f := ProductFilter{
		Keyword:  strings.TrimSpace(q.Get("keyword")),
		Category: strings.TrimSpace(q.Get("category")),
		Page:     1,
		PerPage:  ResultPerPage,
	}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		f.Page = p
	}

	for key, vals := range q {
		m := rangeKey.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			return ProductFilter{}, fmt.Errorf("%w: %s", ErrInvalidFilter, m[1])
		}

		r := &f.Price
		if m[1] == "ratings" {
			r = &f.Ratings
		}
		switch m[2] {
		case "gt":
			r.GT = &v
		case "gte":
			r.GTE = &v
		case "lt":
			r.LT = &v
		case "lte":
			r.LTE = &v
		}
	}
	return f, nil
}

func (f ProductFilter) Query() (bson.M, *options.FindOptions) {
	filter := bson.M{}
	if f.Keyword != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Keyword), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if !f.Price.empty() {
		filter["price"] = f.Price.bson()
	}
	if !f.Ratings.empty() {
		filter["ratings"] = f.Ratings.bson()
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = ResultPerPage
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(perPage)).
		SetSkip(int64(perPage * (page - 1)))
	return filter, opts
}
