package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/middleware"
	"fishmarket/internal/store"
)

type cartAddRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func newCartStore(db *mongo.Database) *store.CartStore {
	return store.NewCartStore(db, store.NewProductStore(db))
}

func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	carts := newCartStore(db)

	return func(c *gin.Context) {
		const route = "POST /cart/add"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req cartAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := carts.AddItem(ctx, userID, productID, req.Quantity)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func GetCart(db *mongo.Database) gin.HandlerFunc {
	carts := newCartStore(db)

	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := carts.GetCart(ctx, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	carts := newCartStore(db)

	return func(c *gin.Context) {
		const route = "PUT /cart/update/:itemId"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		var req cartUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := carts.UpdateItemQuantity(ctx, userID, itemID, req.Quantity)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	carts := newCartStore(db)

	return func(c *gin.Context) {
		const route = "DELETE /cart/remove/:itemId"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := carts.RemoveItem(ctx, userID, itemID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	carts := newCartStore(db)

	return func(c *gin.Context) {
		const route = "DELETE /cart/clear"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := carts.Clear(ctx, userID); err != nil {
			respondDomainError(c, route, err)
			return
		}

		cart, err := carts.GetCart(ctx, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

func CartItemCount(db *mongo.Database) gin.HandlerFunc {
	carts := newCartStore(db)

	return func(c *gin.Context) {
		const route = "GET /cart/count"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := carts.ItemCount(ctx, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}
