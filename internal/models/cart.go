package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fishmarket/internal/money"
)

// CartItem is one (product, quantity) line inside a user's cart.
type CartItem struct {
	ItemID    primitive.ObjectID `bson:"itemId" json:"itemId"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	AddedAt   time.Time          `bson:"addedAt" json:"addedAt"`
}

// Cart is the persisted cart document. Exactly one exists per user; once
// created it is emptied rather than deleted.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ResolvedCartItem is a cart line joined with its live product record, the
// shape returned to clients.
type ResolvedCartItem struct {
	ItemID   primitive.ObjectID `json:"itemId"`
	Product  Product            `json:"product"`
	Quantity int                `json:"quantity"`
	Subtotal money.Amount       `json:"subtotal"`
	AddedAt  time.Time          `json:"addedAt"`
}

type ResolvedCart struct {
	ID        primitive.ObjectID `json:"id"`
	UserID    primitive.ObjectID `json:"userId"`
	Items     []ResolvedCartItem `json:"items"`
	Total     money.Amount       `json:"total"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
