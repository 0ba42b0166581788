package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fishmarket/internal/models"
)

// ProductStore wraps the products collection.
type ProductStore struct {
	db *mongo.Database
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) collection() *mongo.Collection {
	return s.db.Collection("products")
}

func (s *ProductStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// GetByIDs loads products for the given ids keyed by id. Missing ids are
// simply absent from the result.
func (s *ProductStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	result := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := s.collection().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (s *ProductStore) List(ctx context.Context, category models.Category, onlyAvailable bool, page, limit int64) ([]models.Product, int64, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	if onlyAvailable {
		filter["isAvailable"] = true
	}

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

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *ProductStore) Insert(ctx context.Context, product models.Product) (models.Product, error) {
	product.NormalizeAvailability()
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	res, err := s.collection().InsertOne(ctx, product)
	if err != nil {
		return models.Product{}, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	return product, nil
}

func (s *ProductStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Product, error) {
	set["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err := s.collection().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, err
	}

	// A stock update may have driven the document to zero; keep the
	// availability invariant on the persisted record.
	if updated.Stock <= 0 && updated.IsAvailable {
		return s.Update(ctx, id, bson.M{"isAvailable": false})
	}
	return updated, nil
}

func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveStock atomically decrements stock by quantity, matching only while
// enough stock remains. A zero match count means another checkout won the
// race; callers must treat it as insufficient stock and abort.
func (s *ProductStore) ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	res, err := s.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return InsufficientStockError{ProductID: id, Requested: quantity}
	}

	// Flip availability off if the reservation emptied the shelf.
	_, err = s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$lte": 0}},
		bson.M{"$set": bson.M{"isAvailable": false}},
	)
	return err
}

// RestoreStock puts quantity back onto a product after a cancellation and
// re-enables availability, since the shelf is no longer empty.
func (s *ProductStore) RestoreStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	update := bson.M{
		"$inc": bson.M{"stock": quantity},
		"$set": bson.M{"isAvailable": true, "updatedAt": time.Now()},
	}
	_, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
