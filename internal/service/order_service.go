package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/models"
	"fishmarket/internal/money"
	"fishmarket/internal/store"
)

const defaultPaymentMethod = "cash-on-delivery"

var validPaymentMethods = map[string]struct{}{
	"cash-on-delivery": {},
	"upi":              {},
	"card":             {},
}

var (
	ErrCartEmpty            = errors.New("cart is empty")
	ErrInvalidState         = errors.New("order status does not permit this action")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// CartInvalidError carries the per-line validation failures that block a
// checkout.
type CartInvalidError struct {
	Reasons []string
}

func (e CartInvalidError) Error() string {
	return "cart validation failed: " + strings.Join(e.Reasons, "; ")
}

// CreateOrderInput is the checkout request after transport-level binding.
type CreateOrderInput struct {
	Delivery       models.DeliveryDetails
	OrderNotes     string
	PaymentMethod  string
	IdempotencyKey string
}

// ProductStore is the slice of the product store the workflow engine needs.
type ProductStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) error
	RestoreStock(ctx context.Context, id primitive.ObjectID, quantity int) error
}

// CartStore is the slice of the cart store the workflow engine needs.
type CartStore interface {
	Validate(ctx context.Context, userID primitive.ObjectID) ([]string, error)
	GetCart(ctx context.Context, userID primitive.ObjectID) (models.ResolvedCart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

// OrderStore is the slice of the order store the workflow engine needs.
type OrderStore interface {
	NextOrderID(ctx context.Context, now time.Time) (string, error)
	Insert(ctx context.Context, order models.Order) (models.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (models.Order, error)
	GetUserOrder(ctx context.Context, userID primitive.ObjectID, orderID string) (models.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error
	Aggregate(ctx context.Context, now time.Time) (store.Stats, error)
}

// txRunner executes fn as one atomic unit: either every write inside commits
// or none do.
type txRunner func(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error)

func mongoTxRunner(db *mongo.Database) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
		session, err := db.Client().StartSession()
		if err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		defer session.EndSession(ctx)

		return session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			return fn(sessCtx)
		})
	}
}

// OrderService orchestrates checkout: cart validation, the delivery window
// rule, stock reservation, order-id sequencing and cart clearing run as one
// logical transaction.
type OrderService struct {
	products ProductStore
	carts    CartStore
	orders   OrderStore
	runTx    txRunner

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewOrderService(db *mongo.Database, products ProductStore, carts CartStore, orders OrderStore) *OrderService {
	return &OrderService{
		products: products,
		carts:    carts,
		orders:   orders,
		runTx:    mongoTxRunner(db),
		Now:      time.Now,
	}
}

// CreateOrder runs the checkout workflow. Validation is read-only and fails
// fast; all mutations (stock decrements, order insert, cart clear) happen
// inside a single multi-document transaction so a failure partway leaves no
// partial state behind.
func (s *OrderService) CreateOrder(ctx context.Context, userID primitive.ObjectID, input CreateOrderInput) (models.Order, error) {
	method := input.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}
	if _, ok := validPaymentMethods[method]; !ok {
		return models.Order{}, ErrInvalidPaymentMethod
	}

	if input.IdempotencyKey != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return models.Order{}, err
		}
	}

	reasons, err := s.carts.Validate(ctx, userID)
	if err != nil {
		return models.Order{}, err
	}
	if len(reasons) > 0 {
		return models.Order{}, CartInvalidError{Reasons: reasons}
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return models.Order{}, err
	}
	if len(cart.Items) == 0 {
		return models.Order{}, ErrCartEmpty
	}

	now := s.Now()
	if _, err := ValidateDeliveryWindow(now, input.Delivery.DeliveryDate, input.Delivery.DeliverySlot); err != nil {
		return models.Order{}, err
	}

	result, err := s.runTx(ctx, func(txCtx context.Context) (interface{}, error) {
		for _, line := range cart.Items {
			// Re-read inside the transaction: stock may have moved since
			// the cart was validated.
			product, err := s.products.GetByID(txCtx, line.Product.ID)
			if err != nil {
				return nil, err
			}
			if line.Quantity > product.Stock {
				return nil, store.InsufficientStockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: line.Quantity,
				}
			}

			if err := s.products.ReserveStock(txCtx, product.ID, line.Quantity); err != nil {
				var stockErr store.InsufficientStockError
				if errors.As(err, &stockErr) {
					stockErr.Name = product.Name
					stockErr.Available = product.Stock
					return nil, stockErr
				}
				return nil, err
			}
		}

		items, total := BuildOrderItems(cart.Items)

		orderID, err := s.orders.NextOrderID(txCtx, now)
		if err != nil {
			return nil, err
		}

		order := models.Order{
			OrderID:     orderID,
			UserID:      userID,
			Items:       items,
			TotalAmount: total,
			Delivery:    input.Delivery,
			OrderNotes:  input.OrderNotes,
			Status:      models.OrderStatusPending,
			Payment: models.Payment{
				Method: method,
				Status: models.PaymentStatusPending,
				Amount: total,
			},
			IdempotencyKey: input.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		inserted, err := s.orders.Insert(txCtx, order)
		if err != nil {
			return nil, err
		}

		if err := s.carts.Clear(txCtx, userID); err != nil {
			return nil, err
		}
		return inserted, nil
	})
	if err != nil {
		// A concurrent request with the same idempotency key may have
		// committed first; hand back its order instead of failing.
		if input.IdempotencyKey != "" && mongo.IsDuplicateKeyError(err) {
			return s.orders.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		}
		return models.Order{}, err
	}

	return result.(models.Order), nil
}

// BuildOrderItems turns resolved cart lines into immutable order snapshots
// and their total. Name and unit price are copied at this moment and never
// recomputed afterward.
func BuildOrderItems(lines []models.ResolvedCartItem) ([]models.OrderItem, money.Amount) {
	items := make([]models.OrderItem, 0, len(lines))
	var total money.Amount

	for _, line := range lines {
		subtotal := line.Product.Price.Mul(line.Quantity)
		items = append(items, models.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
		})
		total += subtotal
	}
	return items, total
}

// CancelOrder lets a user cancel their own order while it is still pending.
// Reserved stock goes back onto each product in the same transaction.
func (s *OrderService) CancelOrder(ctx context.Context, userID primitive.ObjectID, orderID string) (models.Order, error) {
	result, err := s.runTx(ctx, func(txCtx context.Context) (interface{}, error) {
		order, err := s.orders.GetUserOrder(txCtx, userID, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status != models.OrderStatusPending {
			return nil, ErrInvalidState
		}

		if err := s.restoreOrderStock(txCtx, order); err != nil {
			return nil, err
		}
		if err := s.orders.UpdateStatus(txCtx, order.ID, models.OrderStatusCancelled); err != nil {
			return nil, err
		}

		order.Status = models.OrderStatusCancelled
		return order, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return result.(models.Order), nil
}

// UpdateStatus is the administrative transition entry point. Moving into
// cancelled from any non-cancelled state restores the order's reserved stock.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, target models.OrderStatus) (models.Order, error) {
	result, err := s.runTx(ctx, func(txCtx context.Context) (interface{}, error) {
		order, err := s.orders.GetByOrderID(txCtx, orderID)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(order.Status, target) {
			return nil, ErrInvalidState
		}

		if target == models.OrderStatusCancelled {
			if err := s.restoreOrderStock(txCtx, order); err != nil {
				return nil, err
			}
		}
		if err := s.orders.UpdateStatus(txCtx, order.ID, target); err != nil {
			return nil, err
		}

		order.Status = target
		return order, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return result.(models.Order), nil
}

func (s *OrderService) restoreOrderStock(ctx context.Context, order models.Order) error {
	for _, item := range order.Items {
		if err := s.products.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Stats exposes the admin read-side aggregates.
func (s *OrderService) Stats(ctx context.Context) (store.Stats, error) {
	return s.orders.Aggregate(ctx, s.Now())
}
