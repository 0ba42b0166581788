package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/middleware"
	"fishmarket/internal/models"
	"fishmarket/internal/service"
	"fishmarket/internal/store"
)

type deliveryDetailsRequest struct {
	Address      string `json:"address" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	DeliveryDate string `json:"deliveryDate" binding:"required"`
	DeliveryTime string `json:"deliveryTime" binding:"required"`
}

type createOrderRequest struct {
	DeliveryDetails deliveryDetailsRequest `json:"deliveryDetails" binding:"required"`
	OrderNotes      string                 `json:"orderNotes"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

func newOrderService(db *mongo.Database) *service.OrderService {
	products := store.NewProductStore(db)
	return service.NewOrderService(
		db,
		products,
		store.NewCartStore(db, products),
		store.NewOrderStore(db),
	)
}

func CreateOrder(db *mongo.Database) gin.HandlerFunc {
	orders := newOrderService(db)

	return func(c *gin.Context) {
		const route = "POST /orders/create"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := orders.CreateOrder(ctx, userID, service.CreateOrderInput{
			Delivery: models.DeliveryDetails{
				Address:      req.DeliveryDetails.Address,
				Phone:        req.DeliveryDetails.Phone,
				DeliveryDate: req.DeliveryDetails.DeliveryDate,
				DeliverySlot: req.DeliveryDetails.DeliveryTime,
			},
			OrderNotes:     req.OrderNotes,
			PaymentMethod:  req.PaymentMethod,
			IdempotencyKey: c.GetHeader("Idempotency-Key"),
		})
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order created:", order.OrderID, "for user:", userID.Hex())
		c.JSON(http.StatusCreated, order)
	}
}

func GetOrders(db *mongo.Database) gin.HandlerFunc {
	orders := store.NewOrderStore(db)

	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination parameters")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, total, err := orders.ListByUser(ctx, userID, page, limit)
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

func GetOrder(db *mongo.Database) gin.HandlerFunc {
	orders := store.NewOrderStore(db)

	return func(c *gin.Context) {
		const route = "GET /orders/:orderId"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := orders.GetUserOrder(ctx, userID, c.Param("orderId"))
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func CancelOrder(db *mongo.Database) gin.HandlerFunc {
	orders := newOrderService(db)

	return func(c *gin.Context) {
		const route = "PUT /orders/:orderId/cancel"
		defer handlePanic(c, route)

		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := orders.CancelOrder(ctx, userID, c.Param("orderId"))
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order cancelled:", order.OrderID, "by user:", userID.Hex())
		c.JSON(http.StatusOK, order)
	}
}
