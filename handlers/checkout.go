package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritikgupta28/chocodivine/internal/auth"
	"github.com/ritikgupta28/chocodivine/internal/checkout"
	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/pkg/ctxmanage"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
)

type checkoutRequest struct {
	PaymentType string         `json:"payment_type"`
	Address     orders.Address `json:"address"`
}

func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	paymentType := orders.PaymentType(req.PaymentType)
	if paymentType != orders.PaymentDelivery && paymentType != orders.PaymentGateway {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "payment_type must be delivery or gateway"})
		return
	}

	buyer := checkout.Buyer{UserID: claims.Subject, Email: claims.Email}
	placed, err := h.orchestrator.PlaceOrder(c.Request.Context(), buyer, checkout.Input{
		PaymentType: paymentType,
		Address:     req.Address,
	})
	if err != nil {
		var vErr *checkout.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error":      vErr.Message,
				"field":      vErr.Field,
				"cart_total": vErr.CartTotal,
			})
		case errors.Is(err, checkout.ErrEmptyCart):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		case errors.Is(err, checkout.ErrProductGone):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A product in your cart is no longer available"})
		default:
			slog.Error("checkout failed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		}
		return
	}

	slog.Info("order placed", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.OrderID, placed.Order.ID), slog.String(logkey.UserID, claims.Subject))

	if paymentType == orders.PaymentGateway {
		// The browser auto-submits this form to the gateway's txn page.
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(placed.RedirectHTML))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order placed successfully", "order": placed.Order})
}
