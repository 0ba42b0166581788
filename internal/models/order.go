package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fishmarket/internal/money"
)

// OrderItem is a snapshot of a purchased product at checkout time. Name and
// price are copied, not referenced, so historical orders stay accurate when
// the catalog changes later.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     money.Amount       `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Subtotal  money.Amount       `bson:"subtotal" json:"subtotal"`
}

// DeliveryDetails captures where and when an order should arrive.
type DeliveryDetails struct {
	Address      string `bson:"address" json:"address"`
	Phone        string `bson:"phone" json:"phone"`
	DeliveryDate string `bson:"deliveryDate" json:"deliveryDate"`
	DeliverySlot string `bson:"deliverySlot" json:"deliverySlot"`
}

// Payment is the structured payment sub-record.
type Payment struct {
	Method string        `bson:"method" json:"method"`
	Status PaymentStatus `bson:"status" json:"status"`
	PaidAt *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	Amount money.Amount  `bson:"amount" json:"amount"`
}

// Order is the persisted order document. OrderID carries the human-readable
// identifier ORD-YYYYMMDD-NNN exposed to clients and support tooling.
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID        string             `bson:"orderId" json:"orderId"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Items          []OrderItem        `bson:"items" json:"items"`
	TotalAmount    money.Amount       `bson:"totalAmount" json:"totalAmount"`
	Delivery       DeliveryDetails    `bson:"delivery" json:"delivery"`
	OrderNotes     string             `bson:"orderNotes,omitempty" json:"orderNotes,omitempty"`
	Status         OrderStatus        `bson:"status" json:"status"`
	Payment        Payment            `bson:"payment" json:"payment"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
