package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fishmarket/internal/models"
	"fishmarket/internal/money"
)

// OrderStore wraps the orders collection and the per-day order counter.
type OrderStore struct {
	db *mongo.Database
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) collection() *mongo.Collection {
	return s.db.Collection("orders")
}

// NextOrderID reserves the next sequence number for the calendar day of now
// and formats it as ORD-YYYYMMDD-NNN. The counter document is bumped with an
// atomic increment-and-read, so concurrent checkouts never observe the same
// sequence number.
func (s *OrderStore) NextOrderID(ctx context.Context, now time.Time) (string, error) {
	day := now.Format("20060102")

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": "order-" + day},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("order counter: %w", err)
	}

	return FormatOrderID(now, counter.Seq), nil
}

// FormatOrderID renders the external order identifier. The sequence is
// zero-padded to three digits and keeps growing past 999 without truncation.
func FormatOrderID(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%03d", day.Format("20060102"), seq)
}

func (s *OrderStore) Insert(ctx context.Context, order models.Order) (models.Order, error) {
	res, err := s.collection().InsertOne(ctx, order)
	if err != nil {
		return models.Order{}, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return order, nil
}

func (s *OrderStore) GetByOrderID(ctx context.Context, orderID string) (models.Order, error) {
	return s.findOne(ctx, bson.M{"orderId": orderID})
}

// GetUserOrder looks up an order by its public id scoped to its owner.
func (s *OrderStore) GetUserOrder(ctx context.Context, userID primitive.ObjectID, orderID string) (models.Order, error) {
	return s.findOne(ctx, bson.M{"orderId": orderID, "userId": userID})
}

// GetByIdempotencyKey returns the order previously created with the given
// client-supplied key, if any.
func (s *OrderStore) GetByIdempotencyKey(ctx context.Context, key string) (models.Order, error) {
	return s.findOne(ctx, bson.M{"idempotencyKey": key})
}

func (s *OrderStore) findOne(ctx context.Context, filter bson.M) (models.Order, error) {
	var order models.Order
	err := s.collection().FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, int64, error) {
	return s.list(ctx, bson.M{"userId": userID}, page, limit)
}

func (s *OrderStore) ListAll(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, page, limit)
}

func (s *OrderStore) list(ctx context.Context, filter bson.M, page, limit int64) ([]models.Order, int64, error) {
	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats is the read-side aggregate for the admin dashboard.
type Stats struct {
	CountsByStatus map[models.OrderStatus]int64 `json:"countsByStatus"`
	Revenue        money.Amount                 `json:"revenue"`
	OrdersToday    int64                        `json:"ordersToday"`
}

// Aggregate computes order counts per status, total revenue excluding
// cancelled orders, and the number of orders created since local midnight.
func (s *OrderStore) Aggregate(ctx context.Context, now time.Time) (Stats, error) {
	stats := Stats{CountsByStatus: make(map[models.OrderStatus]int64)}

	cursor, err := s.collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"total": bson.M{"$sum": "$totalAmount"},
		}}},
	})
	if err != nil {
		return Stats{}, err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
		Total  int64              `bson:"total"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return Stats{}, err
	}

	for _, g := range groups {
		stats.CountsByStatus[g.Status] = g.Count
		if g.Status != models.OrderStatusCancelled {
			stats.Revenue += money.Amount(g.Total)
		}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	stats.OrdersToday, err = s.collection().CountDocuments(ctx, bson.M{
		"createdAt": bson.M{"$gte": midnight, "$lt": midnight.AddDate(0, 0, 1)},
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
