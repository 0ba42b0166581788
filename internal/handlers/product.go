package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/models"
	"fishmarket/internal/store"
)

// GetProducts lists the public catalog: available products only, optionally
// filtered by category.
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination parameters")
			return
		}

		var category models.Category
		if raw := c.Query("category"); raw != "" {
			parsed, ok := models.ToCategory(raw)
			if !ok {
				respondWithError(c, http.StatusBadRequest, route, "unknown category")
				return
			}
			category = parsed
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, total, err := products.List(ctx, category, true, page, limit)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products": items,
			"total":    total,
			"page":     page,
			"limit":    limit,
		})
	}
}

func GetProduct(db *mongo.Database) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		product, err := products.GetByID(ctx, id)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, product)
	}
}
