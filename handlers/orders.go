package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritikgupta28/chocodivine/internal/auth"
	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/pkg/ctxmanage"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
)

// ListOrders returns every order for admins and only the caller's own orders
// otherwise. Results are sorted undelivered first, newest first within a
// state.
func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	var (
		list []orders.Order
		err  error
	)
	if claims.HasRole(auth.RoleAdmin) {
		list, err = h.o.ListAll(c.Request.Context())
	} else {
		list, err = h.o.ListForUser(c.Request.Context(), claims.Subject)
	}
	if err != nil {
		slog.Error("error in fetching orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderID := c.Param("orderId")

	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	order, err := h.o.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error in fetching order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if order.Buyer.UserID != claims.Subject && !claims.HasRole(auth.RoleAdmin) {
		// Hide the order's existence from other users.
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) ReadyMark(c *gin.Context) {
	h.advanceFulfillment(c, orders.FulfillmentProcessing)
}

func (h *Handler) DeliveryMark(c *gin.Context) {
	h.advanceFulfillment(c, orders.FulfillmentDelivered)
}

func (h *Handler) advanceFulfillment(c *gin.Context, target orders.FulfillmentState) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderID := c.Param("orderId")

	if err := h.o.UpdateFulfillment(c.Request.Context(), orderID, target); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error in updating fulfillment state", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	order, err := h.o.GetByID(c.Request.Context(), orderID)
	if err != nil {
		slog.Error("error in fetching order after update", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": order})
}
