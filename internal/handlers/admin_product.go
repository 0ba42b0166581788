package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/models"
	"fishmarket/internal/money"
	"fishmarket/internal/store"
)

type ProductCreateRequest struct {
	Name        string       `json:"name" binding:"required"`
	Category    string       `json:"category" binding:"required"`
	Price       money.Amount `json:"price" binding:"required"`
	Stock       int          `json:"stock"`
	IsAvailable *bool        `json:"isAvailable"`
	Description string       `json:"description"`
	ImagePath   string       `json:"imagePath"`
}

type ProductUpdateRequest struct {
	Name        *string       `json:"name"`
	Category    *string       `json:"category"`
	Price       *money.Amount `json:"price"`
	Stock       *int          `json:"stock"`
	IsAvailable *bool         `json:"isAvailable"`
	Description *string       `json:"description"`
	ImagePath   *string       `json:"imagePath"`
}

func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "GET /admin/products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination parameters")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, total, err := products.List(ctx, "", false, page, limit)
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

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "POST /admin/products"
		defer handlePanic(c, route)

		var req ProductCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		category, ok := models.ToCategory(req.Category)
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "category must be one of Fish, Prawn, Crab, Squid")
			return
		}
		if req.Price <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "price must be greater than zero")
			return
		}
		if req.Stock < 0 {
			respondWithError(c, http.StatusBadRequest, route, "stock cannot be negative")
			return
		}

		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Category:    category,
			Price:       req.Price,
			Stock:       req.Stock,
			IsAvailable: req.Stock > 0,
			Description: strings.TrimSpace(req.Description),
			ImagePath:   req.ImagePath,
		}
		if req.IsAvailable != nil {
			product.IsAvailable = *req.IsAvailable
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		created, err := products.Insert(ctx, product)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "PUT /admin/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req ProductUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		set := bson.M{}
		if req.Name != nil {
			trimmed := strings.TrimSpace(*req.Name)
			if trimmed == "" {
				respondWithError(c, http.StatusBadRequest, route, "name cannot be empty")
				return
			}
			set["name"] = trimmed
		}
		if req.Category != nil {
			category, ok := models.ToCategory(*req.Category)
			if !ok {
				respondWithError(c, http.StatusBadRequest, route, "category must be one of Fish, Prawn, Crab, Squid")
				return
			}
			set["category"] = category
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "price must be greater than zero")
				return
			}
			set["price"] = *req.Price
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				respondWithError(c, http.StatusBadRequest, route, "stock cannot be negative")
				return
			}
			set["stock"] = *req.Stock
		}
		if req.IsAvailable != nil {
			set["isAvailable"] = *req.IsAvailable
		}
		if req.Description != nil {
			set["description"] = strings.TrimSpace(*req.Description)
		}
		if req.ImagePath != nil {
			set["imagePath"] = *req.ImagePath
		}
		if len(set) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := products.Update(ctx, id, set)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	products := store.NewProductStore(db)

	return func(c *gin.Context) {
		const route = "DELETE /admin/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := products.Delete(ctx, id); err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
