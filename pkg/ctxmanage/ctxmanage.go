package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const TraceIDKey = "trace_id"

// GetTraceIdOfRequest returns the trace id set by the logging middleware,
// generating one on the spot if the middleware was skipped (tests, /ping).
func GetTraceIdOfRequest(c *gin.Context) string {
	traceId, ok := c.Get(TraceIDKey)
	if !ok {
		id := uuid.NewString()
		c.Set(TraceIDKey, id)
		return id
	}
	return traceId.(string)
}
