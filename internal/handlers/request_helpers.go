package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"fishmarket/internal/models"
	"fishmarket/internal/service"
	"fishmarket/internal/store"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondDomainError maps business errors to 400/404 with a descriptive
// message. Anything unrecognized is an infrastructure failure: logged with
// context, surfaced as an opaque 500.
func respondDomainError(c *gin.Context, route string, err error) {
	var stockErr store.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     stockErr.Error(),
			"product":   stockErr.Name,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}

	var cartErr service.CartInvalidError
	if errors.As(err, &cartErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "cart validation failed",
			"reasons": cartErr.Reasons,
		})
		return
	}

	var leadErr service.LeadTimeError
	if errors.As(err, &leadErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":               leadErr.Error(),
			"minimumDeliveryTime": leadErr.Minimum.Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "not found")
	case errors.Is(err, store.ErrUnavailable),
		errors.Is(err, store.ErrInvalidQuantity),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrInvalidSlot),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, models.ErrInvalidOrderStatus):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	default:
		log.Printf("[%s] unexpected error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "db error")
	}
}
