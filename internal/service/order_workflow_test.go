package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fishmarket/internal/models"
	"fishmarket/internal/money"
	"fishmarket/internal/store"
)

// fakeBackend implements ProductStore, CartStore and OrderStore over plain
// maps, with a transaction runner that snapshots state before the callback
// and rolls back on error, matching the all-or-nothing guarantee of the real
// mongo transaction.
type fakeBackend struct {
	products map[primitive.ObjectID]models.Product
	carts    map[primitive.ObjectID][]models.CartItem
	orders   []models.Order
	seq      int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: map[primitive.ObjectID]models.Product{},
		carts:    map[primitive.ObjectID][]models.CartItem{},
	}
}

func (b *fakeBackend) GetByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	product, ok := b.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (b *fakeBackend) ReserveStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	product, ok := b.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if product.Stock < quantity {
		return store.InsufficientStockError{ProductID: id, Requested: quantity}
	}
	product.Stock -= quantity
	if product.Stock <= 0 {
		product.IsAvailable = false
	}
	b.products[id] = product
	return nil
}

func (b *fakeBackend) RestoreStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	product, ok := b.products[id]
	if !ok {
		return store.ErrNotFound
	}
	product.Stock += quantity
	product.IsAvailable = true
	b.products[id] = product
	return nil
}

func (b *fakeBackend) Validate(_ context.Context, userID primitive.ObjectID) ([]string, error) {
	return store.ValidateCartItems(b.carts[userID], b.products), nil
}

func (b *fakeBackend) GetCart(_ context.Context, userID primitive.ObjectID) (models.ResolvedCart, error) {
	cart := models.Cart{UserID: userID, Items: b.carts[userID]}
	resolved, _ := store.ResolveCart(cart, b.products)
	return resolved, nil
}

func (b *fakeBackend) Clear(_ context.Context, userID primitive.ObjectID) error {
	b.carts[userID] = nil
	return nil
}

func (b *fakeBackend) NextOrderID(_ context.Context, now time.Time) (string, error) {
	b.seq++
	return store.FormatOrderID(now, b.seq), nil
}

func (b *fakeBackend) Insert(_ context.Context, order models.Order) (models.Order, error) {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	b.orders = append(b.orders, order)
	return order, nil
}

func (b *fakeBackend) GetByOrderID(_ context.Context, orderID string) (models.Order, error) {
	for _, order := range b.orders {
		if order.OrderID == orderID {
			return order, nil
		}
	}
	return models.Order{}, store.ErrNotFound
}

func (b *fakeBackend) GetUserOrder(_ context.Context, userID primitive.ObjectID, orderID string) (models.Order, error) {
	for _, order := range b.orders {
		if order.OrderID == orderID && order.UserID == userID {
			return order, nil
		}
	}
	return models.Order{}, store.ErrNotFound
}

func (b *fakeBackend) GetByIdempotencyKey(_ context.Context, key string) (models.Order, error) {
	for _, order := range b.orders {
		if order.IdempotencyKey == key {
			return order, nil
		}
	}
	return models.Order{}, store.ErrNotFound
}

func (b *fakeBackend) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	for i := range b.orders {
		if b.orders[i].ID == id {
			b.orders[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (b *fakeBackend) Aggregate(_ context.Context, _ time.Time) (store.Stats, error) {
	stats := store.Stats{CountsByStatus: map[models.OrderStatus]int64{}}
	for _, order := range b.orders {
		stats.CountsByStatus[order.Status]++
		if order.Status != models.OrderStatusCancelled {
			stats.Revenue += order.TotalAmount
		}
	}
	return stats, nil
}

func (b *fakeBackend) runTx(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	snap := b.snapshot()
	out, err := fn(ctx)
	if err != nil {
		b.restore(snap)
		return nil, err
	}
	return out, nil
}

func (b *fakeBackend) snapshot() fakeBackend {
	snap := fakeBackend{
		products: make(map[primitive.ObjectID]models.Product, len(b.products)),
		carts:    make(map[primitive.ObjectID][]models.CartItem, len(b.carts)),
		orders:   append([]models.Order(nil), b.orders...),
		seq:      b.seq,
	}
	for id, p := range b.products {
		snap.products[id] = p
	}
	for id, items := range b.carts {
		snap.carts[id] = append([]models.CartItem(nil), items...)
	}
	return snap
}

func (b *fakeBackend) restore(snap fakeBackend) {
	b.products = snap.products
	b.carts = snap.carts
	b.orders = snap.orders
	b.seq = snap.seq
}

var checkoutNow = time.Date(2025, 12, 6, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

func newWorkflowService(b *fakeBackend) *OrderService {
	return &OrderService{
		products: b,
		carts:    b,
		orders:   b,
		runTx:    b.runTx,
		Now:      func() time.Time { return checkoutNow },
	}
}

func (b *fakeBackend) seedProduct(name string, price int64, stock int) primitive.ObjectID {
	id := primitive.NewObjectID()
	b.products[id] = models.Product{
		ID:          id,
		Name:        name,
		Category:    models.CategoryFish,
		Price:       money.Amount(price),
		Stock:       stock,
		IsAvailable: true,
	}
	return id
}

func (b *fakeBackend) seedCartLine(userID, productID primitive.ObjectID, quantity int) {
	b.carts[userID] = append(b.carts[userID], models.CartItem{
		ItemID:    primitive.NewObjectID(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   checkoutNow,
	})
}

func checkoutInput() CreateOrderInput {
	return CreateOrderInput{
		Delivery: models.DeliveryDetails{
			Address:      "12 Beach Road, Chennai",
			Phone:        "+919800000000",
			DeliveryDate: "2025-12-06",
			DeliverySlot: "16:00-20:00",
		},
	}
}

func TestCreateOrderCheckoutFlow(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)
	prawn := b.seedProduct("Tiger Prawn", 5000, 2)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 3)
	b.seedCartLine(userID, prawn, 2)

	svc := newWorkflowService(b)
	order, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	assert.Equal(t, "ORD-20251206-001", order.OrderID)
	assert.Equal(t, money.Amount(40000), order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, "cash-on-delivery", order.Payment.Method)
	assert.Equal(t, money.Amount(40000), order.Payment.Amount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, money.Amount(30000), order.Items[0].Subtotal)

	assert.Equal(t, 7, b.products[seer].Stock)
	assert.Equal(t, 0, b.products[prawn].Stock)
	assert.False(t, b.products[prawn].IsAvailable)
	assert.Empty(t, b.carts[userID])
}

func TestCreateOrderSequentialIDsIncrease(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)
	svc := newWorkflowService(b)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 1)
	first, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	b.seedCartLine(userID, seer, 1)
	second, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	assert.Equal(t, "ORD-20251206-001", first.OrderID)
	assert.Equal(t, "ORD-20251206-002", second.OrderID)
}

func TestCreateOrderInsufficientStockAbortsWholeCheckout(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)
	prawn := b.seedProduct("Tiger Prawn", 5000, 1)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 3)
	b.seedCartLine(userID, prawn, 2)

	svc := newWorkflowService(b)
	_, err := svc.CreateOrder(context.Background(), userID, checkoutInput())

	var stockErr store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, prawn, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	// The first line's reservation succeeded before the second failed; the
	// rollback must undo it.
	assert.Equal(t, 10, b.products[seer].Stock)
	assert.Equal(t, 1, b.products[prawn].Stock)
	assert.Len(t, b.carts[userID], 2)
	assert.Empty(t, b.orders)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	b := newFakeBackend()
	svc := newWorkflowService(b)

	_, err := svc.CreateOrder(context.Background(), primitive.NewObjectID(), checkoutInput())
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	b := newFakeBackend()
	svc := newWorkflowService(b)

	input := checkoutInput()
	input.PaymentMethod = "barter"
	_, err := svc.CreateOrder(context.Background(), primitive.NewObjectID(), input)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCreateOrderIdempotencyKeyReturnsExistingOrder(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 2)

	svc := newWorkflowService(b)
	input := checkoutInput()
	input.IdempotencyKey = "retry-abc123"

	first, err := svc.CreateOrder(context.Background(), userID, input)
	require.NoError(t, err)

	// The cart is now empty; a retry with the same key must not fail or
	// create a second order.
	second, err := svc.CreateOrder(context.Background(), userID, input)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, b.orders, 1)
	assert.Equal(t, 8, b.products[seer].Stock)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)
	prawn := b.seedProduct("Tiger Prawn", 5000, 2)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 3)
	b.seedCartLine(userID, prawn, 2)

	svc := newWorkflowService(b)
	order, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(context.Background(), userID, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	assert.Equal(t, 10, b.products[seer].Stock)
	assert.Equal(t, 2, b.products[prawn].Stock)
	assert.True(t, b.products[prawn].IsAvailable)

	stored, err := b.GetByOrderID(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
}

func TestCancelOrderNonPendingLeavesStockUntouched(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 3)

	svc := newWorkflowService(b)
	order, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.OrderID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), userID, order.OrderID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 7, b.products[seer].Stock)

	stored, err := b.GetByOrderID(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestCancelOrderOtherUsersOrderNotFound(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)

	owner := primitive.NewObjectID()
	b.seedCartLine(owner, seer, 1)

	svc := newWorkflowService(b)
	order, err := svc.CreateOrder(context.Background(), owner, checkoutInput())
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), primitive.NewObjectID(), order.OrderID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateStatusAdminCancelRestoresStock(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 4)

	svc := newWorkflowService(b)
	order, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.OrderID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), order.OrderID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 10, b.products[seer].Stock)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)

	userID := primitive.NewObjectID()
	b.seedCartLine(userID, seer, 2)

	svc := newWorkflowService(b)
	order, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.OrderID, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 8, b.products[seer].Stock)

	stored, err := b.GetByOrderID(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestStatsSkipsCancelledRevenue(t *testing.T) {
	b := newFakeBackend()
	seer := b.seedProduct("Seer Fish", 10000, 10)

	userID := primitive.NewObjectID()
	svc := newWorkflowService(b)

	b.seedCartLine(userID, seer, 1)
	kept, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	b.seedCartLine(userID, seer, 2)
	dropped, err := svc.CreateOrder(context.Background(), userID, checkoutInput())
	require.NoError(t, err)
	_, err = svc.CancelOrder(context.Background(), userID, dropped.OrderID)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, kept.TotalAmount, stats.Revenue)
	assert.Equal(t, int64(1), stats.CountsByStatus[models.OrderStatusPending])
	assert.Equal(t, int64(1), stats.CountsByStatus[models.OrderStatusCancelled])
}
