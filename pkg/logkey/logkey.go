package logkey

// Common attribute keys so log lines stay grep-able across packages.
const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
	OrderID = "OrderID"
	UserID  = "UserID"
)
