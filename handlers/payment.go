package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritikgupta28/chocodivine/internal/payment"
	"github.com/ritikgupta28/chocodivine/pkg/ctxmanage"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
)

var paymentAckPage = []byte(`<!DOCTYPE html>
<html>
<head><title>Payment Received</title></head>
<body>
<h3>Thank you. Your payment response has been recorded.</h3>
<p>You can check the status of your order in the orders section.</p>
</body>
</html>`)

// PaymentCallback receives the gateway's server-to-server form post.
// The response is a fixed acknowledgment page no matter what the
// verification decided, so the gateway never learns whether the
// signature checked out.
func (h *Handler) PaymentCallback(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if err := c.Request.ParseForm(); err != nil {
		slog.Error("failed to parse gateway callback form", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.Data(http.StatusOK, "text/html; charset=utf-8", paymentAckPage)
		return
	}

	outcome := h.reconciler.HandleCallback(c.Request.Context(), c.Request.PostForm)
	switch outcome {
	case payment.OutcomeConfirmed:
		slog.Info("payment confirmed from gateway callback", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, c.Request.PostForm.Get("ORDERID")))
	case payment.OutcomeUntrusted:
		slog.Error("gateway callback failed checksum verification", slog.String(logkey.TraceID, traceId))
	default:
		slog.Info("gateway callback processed", slog.String(logkey.TraceID, traceId),
			slog.String("Outcome", outcome.String()))
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", paymentAckPage)
}
