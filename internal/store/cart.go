package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fishmarket/internal/models"
)

// CartStore wraps the carts collection. Every user owns at most one cart
// document, enforced by a unique index on userId.
type CartStore struct {
	db       *mongo.Database
	products *ProductStore
}

func NewCartStore(db *mongo.Database, products *ProductStore) *CartStore {
	return &CartStore{db: db, products: products}
}

func (s *CartStore) collection() *mongo.Collection {
	return s.db.Collection("carts")
}

// AddItem inserts a cart line or merges the quantity into an existing line
// for the same product. The merged quantity is checked against live stock.
func (s *CartStore) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (models.ResolvedCart, error) {
	if quantity <= 0 {
		return models.ResolvedCart{}, ErrInvalidQuantity
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return models.ResolvedCart{}, err
	}
	if !product.IsAvailable {
		return models.ResolvedCart{}, ErrUnavailable
	}

	cart, err := s.load(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.ResolvedCart{}, err
	}

	merged := quantity + existingQuantity(cart.Items, productID)
	if merged > product.Stock {
		return models.ResolvedCart{}, InsufficientStockError{
			ProductID: productID,
			Name:      product.Name,
			Available: product.Stock,
			Requested: merged,
		}
	}

	now := time.Now()
	item := models.CartItem{
		ItemID:    primitive.NewObjectID(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   now,
	}

	// Two concurrent first-time adds can both miss the merge step and both
	// attempt the upsert; the unique userId index rejects the loser with a
	// duplicate key. Retrying lands the loser on the merge path against the
	// winner's document.
	if err := retryOnDuplicate(func() error {
		return s.writeItem(ctx, userID, item, now)
	}); err != nil {
		return models.ResolvedCart{}, err
	}

	return s.GetCart(ctx, userID)
}

// writeItem merges quantity into the matching line if one exists, otherwise
// pushes a new line, creating the cart document on first use.
func (s *CartStore) writeItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem, now time.Time) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"userId": userID, "items.productId": item.ProductID},
		bson.M{
			"$inc": bson.M{"items.$.quantity": item.Quantity},
			"$set": bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	_, err = s.collection().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$push":        bson.M{"items": item},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// retryOnDuplicate runs fn again, once, when its first attempt fails on a
// duplicate-key error.
func retryOnDuplicate(fn func() error) error {
	err := fn()
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fn()
	}
	return err
}

// GetCart returns the user's cart with product details resolved. Lines whose
// product is gone or toggled unavailable are pruned from the stored document
// as a side effect of the read. An absent cart resolves to an empty one.
func (s *CartStore) GetCart(ctx context.Context, userID primitive.ObjectID) (models.ResolvedCart, error) {
	cart, err := s.load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.ResolvedCart{UserID: userID, Items: []models.ResolvedCartItem{}}, nil
	}
	if err != nil {
		return models.ResolvedCart{}, err
	}

	products, err := s.cartProducts(ctx, cart)
	if err != nil {
		return models.ResolvedCart{}, err
	}

	resolved, kept := ResolveCart(cart, products)
	if len(kept) != len(cart.Items) {
		_, err = s.collection().UpdateOne(ctx,
			bson.M{"_id": cart.ID},
			bson.M{"$set": bson.M{"items": kept, "updatedAt": time.Now()}},
		)
		if err != nil {
			return models.ResolvedCart{}, err
		}
	}
	return resolved, nil
}

func (s *CartStore) UpdateItemQuantity(ctx context.Context, userID, itemID primitive.ObjectID, quantity int) (models.ResolvedCart, error) {
	if quantity <= 0 {
		return models.ResolvedCart{}, ErrInvalidQuantity
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return models.ResolvedCart{}, err
	}

	var target *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ItemID == itemID {
			target = &cart.Items[i]
			break
		}
	}
	if target == nil {
		return models.ResolvedCart{}, ErrNotFound
	}

	product, err := s.products.GetByID(ctx, target.ProductID)
	if err != nil {
		return models.ResolvedCart{}, err
	}
	if quantity > product.Stock {
		return models.ResolvedCart{}, InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Stock,
			Requested: quantity,
		}
	}

	_, err = s.collection().UpdateOne(ctx,
		bson.M{"_id": cart.ID, "items.itemId": itemID},
		bson.M{
			"$set": bson.M{"items.$.quantity": quantity, "updatedAt": time.Now()},
		},
	)
	if err != nil {
		return models.ResolvedCart{}, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem drops a line from the cart. Removing from an absent cart or an
// absent line is not an error.
func (s *CartStore) RemoveItem(ctx context.Context, userID, itemID primitive.ObjectID) (models.ResolvedCart, error) {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"itemId": itemID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return models.ResolvedCart{}, err
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart, keeping the document as an empty shell. Idempotent.
func (s *CartStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	return err
}

// ItemCount sums quantities across all lines; 0 for an absent cart.
func (s *CartStore) ItemCount(ctx context.Context, userID primitive.ObjectID) (int, error) {
	cart, err := s.load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return lo.SumBy(cart.Items, func(item models.CartItem) int { return item.Quantity }), nil
}

// Validate re-checks every line for existence, availability and stock. The
// returned messages are user-facing; an empty slice means the cart is ready
// for checkout.
func (s *CartStore) Validate(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	cart, err := s.load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	products, err := s.cartProducts(ctx, cart)
	if err != nil {
		return nil, err
	}
	return ValidateCartItems(cart.Items, products), nil
}

func (s *CartStore) load(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := s.collection().FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{}, ErrNotFound
	}
	if err != nil {
		return models.Cart{}, err
	}
	return cart, nil
}

func (s *CartStore) cartProducts(ctx context.Context, cart models.Cart) (map[primitive.ObjectID]models.Product, error) {
	ids := lo.Map(cart.Items, func(item models.CartItem, _ int) primitive.ObjectID { return item.ProductID })
	return s.products.GetByIDs(ctx, ids)
}

func existingQuantity(items []models.CartItem, productID primitive.ObjectID) int {
	for _, item := range items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// ResolveCart joins cart lines with their products, dropping lines whose
// product is missing or unavailable. It returns the client-facing cart and
// the pruned persisted lines.
func ResolveCart(cart models.Cart, products map[primitive.ObjectID]models.Product) (models.ResolvedCart, []models.CartItem) {
	kept := make([]models.CartItem, 0, len(cart.Items))
	resolved := models.ResolvedCart{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]models.ResolvedCartItem, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsAvailable {
			continue
		}
		kept = append(kept, item)
		subtotal := product.Price.Mul(item.Quantity)
		resolved.Items = append(resolved.Items, models.ResolvedCartItem{
			ItemID:   item.ItemID,
			Product:  product,
			Quantity: item.Quantity,
			Subtotal: subtotal,
			AddedAt:  item.AddedAt,
		})
		resolved.Total += subtotal
	}
	return resolved, kept
}

// ValidateCartItems is the pre-checkout gate: one message per failing line.
func ValidateCartItems(items []models.CartItem, products map[primitive.ObjectID]models.Product) []string {
	var reasons []string
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			reasons = append(reasons, "a product in your cart no longer exists")
			continue
		}
		if !product.IsAvailable {
			reasons = append(reasons, fmt.Sprintf("%s is no longer available", product.Name))
			continue
		}
		if item.Quantity > product.Stock {
			reasons = append(reasons, fmt.Sprintf("only %d of %s left in stock, %d requested", product.Stock, product.Name, item.Quantity))
		}
	}
	return reasons
}
