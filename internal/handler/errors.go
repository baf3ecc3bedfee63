package handler

import (
	"errors"
	"net/http"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	requestID := c.GetString("request_id")

	body := gin.H{
		"error":      msg,
		"kind":       domain.KindOf(err).String(),
		"request_id": requestID,
	}
	if status == http.StatusInternalServerError {
		logger.Error(msg, zap.String("request_id", requestID), zap.Error(err))
	} else {
		body["details"] = err.Error()
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["product_id"] = stockErr.ProductID
		body["requested"] = stockErr.Requested
		body["available"] = stockErr.Available
	}
	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		body["from"] = transitionErr.From
		body["to"] = transitionErr.To
	}

	c.JSON(status, body)
}

func bindError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("Invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":      "Invalid request format",
		"details":    err.Error(),
		"request_id": c.GetString("request_id"),
	})
}
