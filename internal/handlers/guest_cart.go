package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/guestcart"
	"fishmarket/internal/store"
)

const sessionHeader = "X-Session-Id"

// sessionID reads the guest session header, minting a fresh id when absent.
// The (possibly new) id is echoed back on every response so clients can keep
// using it.
func sessionID(c *gin.Context) string {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(sessionHeader, id)
	return id
}

// AddGuestCartItem adds a product to an unauthenticated visitor's cart. The
// product is checked against the catalog, but no stock is held; guest carts
// are only a convenience until login.
func AddGuestCartItem(db *mongo.Database, carts guestcart.Store, ttl time.Duration) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "POST /guest/cart/add"
		defer handlePanic(c, route)

		var req cartAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Quantity <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "quantity must be greater than zero")
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		product, err := products.GetByID(ctx, productID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		if !product.IsAvailable {
			respondDomainError(c, route, store.ErrUnavailable)
			return
		}

		session := sessionID(c)
		cart, err := carts.Get(ctx, session)
		if errors.Is(err, guestcart.ErrNotFound) {
			cart = guestcart.Cart{SessionID: session}
		} else if err != nil {
			respondDomainError(c, route, err)
			return
		}

		cart.Add(req.ProductID, req.Quantity, time.Now())
		if err := carts.Set(ctx, cart, ttl); err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func GetGuestCart(carts guestcart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /guest/cart"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session := sessionID(c)
		cart, err := carts.Get(ctx, session)
		if errors.Is(err, guestcart.ErrNotFound) {
			cart = guestcart.Cart{SessionID: session, Items: []guestcart.Item{}}
		} else if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func ClearGuestCart(carts guestcart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /guest/cart/clear"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := carts.Delete(ctx, sessionID(c)); err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "guest cart cleared"})
	}
}
