package handlers

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ritikgupta28/chocodivine/internal/auth"
	"github.com/ritikgupta28/chocodivine/internal/cache"
	"github.com/ritikgupta28/chocodivine/internal/checkout"
	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/internal/payment"
	"github.com/ritikgupta28/chocodivine/internal/products"
	"github.com/ritikgupta28/chocodivine/internal/users"
	"github.com/ritikgupta28/chocodivine/middleware"
	"github.com/ritikgupta28/chocodivine/pkg/ctxmanage"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
	"github.com/ritikgupta28/chocodivine/pkg/metrics"
)

type Handler struct {
	u            *users.Conf
	p            products.Conf
	o            *orders.Conf
	orchestrator *checkout.Orchestrator
	reconciler   *payment.Reconciler
	keys         *auth.Keys
	cache        cache.Cache
	validate     *validator.Validate
}

func NewHandler(u *users.Conf, p products.Conf, o *orders.Conf,
	orchestrator *checkout.Orchestrator, reconciler *payment.Reconciler,
	keys *auth.Keys, productCache cache.Cache) *Handler {
	return &Handler{
		u:            u,
		p:            p,
		o:            o,
		orchestrator: orchestrator,
		reconciler:   reconciler,
		keys:         keys,
		cache:        productCache,
		validate:     validator.New(),
	}
}

func API(h *Handler, serverMetrics *metrics.ServerMetrics) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(h.keys)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), middleware.Metrics(serverMetrics), gin.Recovery())
	r.GET("/ping", healthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// The gateway calls back server-to-server; it carries no session.
	r.POST("/payment/callback", h.PaymentCallback)

	usersGroup := r.Group("/users")
	{
		usersGroup.POST("/signup", h.Signup)
		usersGroup.POST("/login", h.Login)
	}

	productsGroup := r.Group("/products")
	{
		productsGroup.GET("/list", h.ListProducts)
		productsGroup.GET("/view/:id", h.GetProduct)

		productsGroup.Use(m.Authentication())
		productsGroup.POST("/create", m.Authorize(h.CreateProduct, auth.RoleAdmin))
		productsGroup.PUT("/update/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
		productsGroup.DELETE("/delete/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))
	}

	cartGroup := r.Group("/cart")
	{
		cartGroup.Use(m.Authentication())
		cartGroup.POST("/add-item", m.Authorize(h.AddToCart, auth.RoleUser))
		cartGroup.POST("/remove-item", m.Authorize(h.RemoveFromCart, auth.RoleUser))
		cartGroup.GET("/items", m.Authorize(h.GetActiveCartItems, auth.RoleUser))
	}

	ordersGroup := r.Group("/orders")
	{
		ordersGroup.Use(m.Authentication())
		ordersGroup.POST("/checkout", m.Authorize(h.Checkout, auth.RoleUser))
		ordersGroup.GET("/list", h.ListOrders)
		ordersGroup.GET("/view/:orderId", h.GetOrder)
		ordersGroup.POST("/readymark/:orderId", m.Authorize(h.ReadyMark, auth.RoleAdmin))
		ordersGroup.POST("/deliverymark/:orderId", m.Authorize(h.DeliveryMark, auth.RoleAdmin))
	}

	return r
}

func healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	slog.Info("health check", slog.String(logkey.TraceID, traceId))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
