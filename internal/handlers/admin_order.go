package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/models"
	"fishmarket/internal/store"
)

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func GetAllOrders(db *mongo.Database) gin.HandlerFunc {
	orders := store.NewOrderStore(db)

	return func(c *gin.Context) {
		const route = "GET /admin/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination parameters")
			return
		}

		var status models.OrderStatus
		if raw := c.Query("status"); raw != "" {
			parsed, err := models.ToOrderStatus(raw)
			if err != nil {
				respondDomainError(c, route, err)
				return
			}
			status = parsed
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, total, err := orders.ListAll(ctx, status, page, limit)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": items,
			"total":  total,
			"page":   page,
			"limit":  limit,
		})
	}
}

func UpdateOrderStatus(db *mongo.Database) gin.HandlerFunc {
	orders := newOrderService(db)

	return func(c *gin.Context) {
		const route = "PUT /admin/orders/:orderId/status"
		defer handlePanic(c, route)

		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		status, err := models.ToOrderStatus(req.Status)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := orders.UpdateStatus(ctx, c.Param("orderId"), status)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] status updated:", order.OrderID, "->", order.Status)
		c.JSON(http.StatusOK, order)
	}
}

func GetOrderStats(db *mongo.Database) gin.HandlerFunc {
	orders := newOrderService(db)

	return func(c *gin.Context) {
		const route = "GET /admin/stats"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		stats, err := orders.Stats(ctx)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
