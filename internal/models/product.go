package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fishmarket/internal/money"
)

// Category enumerates the product categories sold on the marketplace.
type Category string

const (
	CategoryFish  Category = "Fish"
	CategoryPrawn Category = "Prawn"
	CategoryCrab  Category = "Crab"
	CategorySquid Category = "Squid"
)

var validCategories = map[Category]struct{}{
	CategoryFish:  {},
	CategoryPrawn: {},
	CategoryCrab:  {},
	CategorySquid: {},
}

func ToCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := validCategories[c]
	return c, ok
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Category    Category           `bson:"category" json:"category"`
	Price       money.Amount       `bson:"price" json:"price"`
	Stock       int                `bson:"stock" json:"stock"`
	IsAvailable bool               `bson:"isAvailable" json:"isAvailable"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	ImagePath   string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeAvailability enforces the stock/availability invariant before a
// product value is persisted: a product with zero stock is never available.
func (p *Product) NormalizeAvailability() {
	if p.Stock <= 0 {
		p.IsAvailable = false
	}
}
