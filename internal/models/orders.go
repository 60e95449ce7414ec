package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
)

var statusRank = map[OrderStatus]int{
	StatusProcessing: 0,
	StatusShipped:    1,
	StatusDelivered:  2,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Transition describes the side effects of moving an order between two
// fulfillment states.
type Transition struct {
	From           OrderStatus
	To             OrderStatus
	Noop           bool
	DecrementStock bool
	StampDelivered bool
}

// PlanTransition validates from→to. Delivered is terminal, states never move
// backwards, and re-applying the current state is a no-op. Stock leaves the
// warehouse exactly once: on the first move out of Processing.
func PlanTransition(from, to OrderStatus) (Transition, error) {
	if !to.Valid() {
		return Transition{}, ErrUnknownStatus
	}
	if from == StatusDelivered {
		return Transition{}, ErrOrderDelivered
	}

	t := Transition{From: from, To: to}
	if from == to {
		t.Noop = true
		return t, nil
	}
	if statusRank[to] < statusRank[from] {
		return Transition{}, ErrInvalidTransition
	}

	t.DecrementStock = from == StatusProcessing
	t.StampDelivered = to == StatusDelivered
	return t, nil
}

type OrderModel struct {
	Collection *mongo.Collection
}

// Insert stores o as submitted. Prices are not re-derived from the catalog.
func (m *OrderModel) Insert(ctx context.Context, o *Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.OrderStatus == "" {
		o.OrderStatus = StatusProcessing
	}
	if o.PaymentInfo.Status == "" {
		o.PaymentInfo.Status = PaymentPending
	}

	_, err := m.Collection.InsertOne(ctx, o)
	return err
}

func (m *OrderModel) Get(ctx context.Context, id primitive.ObjectID) (*Order, error) {
	var o Order
	err := m.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (m *OrderModel) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*Order, error) {
	return m.find(ctx, bson.M{"user": userID})
}

// ListAll returns every order and the sum of their totals.
func (m *OrderModel) ListAll(ctx context.Context) ([]*Order, float64, error) {
	orders, err := m.find(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	var total float64
	for _, o := range orders {
		total += o.TotalPrice
	}
	return orders, total, nil
}

// ListUnpaidBefore returns orders created before cutoff whose payment was
// never confirmed.
func (m *OrderModel) ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	return m.find(ctx, bson.M{
		"createdAt":          bson.M{"$lt": cutoff},
		"paymentInfo.status": bson.M{"$ne": PaymentSucceeded},
	})
}

func (m *OrderModel) find(ctx context.Context, filter bson.M) ([]*Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	orders := []*Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ApplyTransition moves the order from t.From to t.To only if it is still in
// t.From, so two concurrent updates cannot both act on the same state.
func (m *OrderModel) ApplyTransition(ctx context.Context, id primitive.ObjectID, t Transition, now time.Time) error {
	if t.Noop {
		return nil
	}

	set := bson.M{"orderStatus": t.To}
	if t.StampDelivered {
		set["deliveredAt"] = now
	}

	res, err := m.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "orderStatus": t.From},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

// AttachPaymentSession records the processor session on an order owned by userID.
func (m *OrderModel) AttachPaymentSession(ctx context.Context, id, userID primitive.ObjectID, sessionID string) error {
	res, err := m.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "user": userID},
		bson.M{"$set": bson.M{"paymentInfo.id": sessionID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoRecord
	}
	return nil
}

// MarkPaid records a confirmed payment. Confirming an already paid order
// leaves the first paidAt in place.
func (m *OrderModel) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentID string, paidAt time.Time) error {
	res, err := m.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "paymentInfo.status": bson.M{"$ne": PaymentSucceeded}},
		bson.M{"$set": bson.M{
			"paymentInfo.id":     paymentID,
			"paymentInfo.status": PaymentSucceeded,
			"paidAt":             paidAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := m.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoRecord
		}
	}
	return nil
}

func (m *OrderModel) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNoRecord
	}
	return nil
}
