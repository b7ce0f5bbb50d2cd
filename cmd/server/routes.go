package main

import (
	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/infrastructure/config"
	"github.com/ecommerce/backend/internal/interfaces/http/handler"
	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/ecommerce/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// routeHandlers bundles what registerRoutes mounts
type routeHandlers struct {
	auth       *handler.AuthHandler
	users      *handler.UserHandler
	roles      *handler.RoleHandler
	categories *handler.CategoryHandler
	products   *handler.ProductHandler
	carts      *handler.CartHandler
	orders     *handler.OrderHandler
	details    *handler.OrderDetailHandler
	payments   *handler.PaymentHandler
	invoices   *handler.InvoiceHandler
	system     *handler.SystemHandler

	jwtAuth gin.HandlerFunc
	// authLimiter is nil when the stricter auth limit is off
	authLimiter gin.HandlerFunc
}

// registerRoutes mounts every domain group under /api/v1.
// Public routes live on the group itself, authenticated routes on an
// unprefixed sub-group carrying the JWT middleware.
func registerRoutes(r *router.Router, h routeHandlers) {
	adminOnly := middleware.RequireRoles(identity.RoleAdmin)

	// Identity: authentication
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if h.authLimiter != nil {
		authRoutes.Use(h.authLimiter)
	}
	authRoutes.POST("/register", h.auth.Register)
	authRoutes.GET("/verify", h.auth.VerifyEmail)
	authRoutes.POST("/login", h.auth.Login)
	authRoutes.POST("/request-reset", h.auth.RequestPasswordReset)
	authRoutes.GET("/reset-password", h.auth.ValidateResetToken)
	authRoutes.POST("/reset-password", h.auth.ResetPassword)
	session := authRoutes.Group("auth-session", "").Use(h.jwtAuth)
	session.POST("/logout", h.auth.Logout)
	session.GET("/me", h.auth.Me)

	// Identity: users
	userRoutes := router.NewDomainGroup("users", "/users").Use(h.jwtAuth)
	userRoutes.GET("/profile", h.users.Profile)
	userRoutes.PATCH("/update", h.users.UpdateProfile)
	userAdmin := userRoutes.Group("users-admin", "").Use(adminOnly)
	userAdmin.POST("", h.users.Create)
	userAdmin.GET("", h.users.List)
	userAdmin.GET("/:id", h.users.GetByID)
	userAdmin.PATCH("/:id", h.users.Update)
	userAdmin.DELETE("/:id", h.users.Delete)

	// Identity: roles
	roleRoutes := router.NewDomainGroup("roles", "/roles").Use(h.jwtAuth)
	roleRoutes.GET("", h.roles.List)
	roleRoutes.GET("/:id", h.roles.GetByID)
	roleAdmin := roleRoutes.Group("roles-admin", "").Use(adminOnly)
	roleAdmin.POST("", h.roles.Create)
	roleAdmin.PATCH("/:id", h.roles.Update)
	roleAdmin.DELETE("/:id", h.roles.Delete)

	// Catalog: categories
	categoryRoutes := router.NewDomainGroup("categories", "/categories")
	categoryRoutes.GET("", h.categories.List)
	categoryRoutes.GET("/:id", h.categories.GetByID)
	categoryAdmin := categoryRoutes.Group("categories-admin", "").Use(h.jwtAuth, adminOnly)
	categoryAdmin.POST("", h.categories.Create)
	categoryAdmin.PATCH("/:id", h.categories.Update)
	categoryAdmin.DELETE("/:id", h.categories.Delete)

	// Catalog: products
	productRoutes := router.NewDomainGroup("products", "/products")
	productRoutes.GET("", h.products.List)
	productRoutes.GET("/:id", h.products.GetByID)
	productAdmin := productRoutes.Group("products-admin", "").Use(h.jwtAuth, adminOnly)
	productAdmin.POST("", h.products.Create)
	productAdmin.POST("/import", h.products.Import)
	productAdmin.PATCH("/:id", h.products.Update)
	productAdmin.DELETE("/:id", h.products.Delete)
	productAdmin.POST("/:id/image", h.products.UploadImage)

	// Trade: carts
	cartRoutes := router.NewDomainGroup("carts", "/carts").Use(h.jwtAuth)
	cartRoutes.GET("/my", h.carts.GetMyCart)
	cartRoutes.POST("/item", h.carts.SetItem)
	cartRoutes.DELETE("/item/:productId", h.carts.RemoveItem)
	cartRoutes.PATCH("/checkout", h.carts.Checkout)
	cartAdmin := cartRoutes.Group("carts-admin", "").Use(adminOnly)
	cartAdmin.GET("", h.carts.List)
	cartAdmin.GET("/:id", h.carts.GetByID)

	// Trade: orders
	orderRoutes := router.NewDomainGroup("orders", "/orders").Use(h.jwtAuth)
	orderRoutes.POST("", h.orders.Create)
	orderRoutes.GET("/my-orders", h.orders.ListMine)
	orderRoutes.GET("/:id", h.orders.GetByID)
	orderRoutes.PATCH("/:id/status", h.orders.UpdateStatus)
	orderAdmin := orderRoutes.Group("orders-admin", "").Use(adminOnly)
	orderAdmin.GET("", h.orders.List)
	orderAdmin.PATCH("/:id", h.orders.Update)
	orderAdmin.DELETE("/:id", h.orders.Delete)

	// Trade: order details
	detailRoutes := router.NewDomainGroup("order-details", "/order-details").Use(h.jwtAuth)
	detailRoutes.GET("/:id", h.details.GetByID)
	detailAdmin := detailRoutes.Group("order-details-admin", "").Use(adminOnly)
	detailAdmin.GET("", h.details.List)
	detailAdmin.POST("", h.details.Create)
	detailAdmin.PATCH("/:id", h.details.Update)
	detailAdmin.DELETE("/:id", h.details.Delete)

	// Billing: payments. Stripe calls the webhook without a token.
	paymentRoutes := router.NewDomainGroup("payments", "/payments")
	paymentRoutes.POST("/webhook", h.payments.HandleStripeWebhook)
	paymentAuthed := paymentRoutes.Group("payments-authed", "").Use(h.jwtAuth)
	paymentAuthed.POST("/stripe/checkout", h.payments.CreateStripeCheckout)
	paymentAuthed.GET("/verify", h.payments.VerifyCheckout)
	paymentAuthed.POST("/manual", h.payments.RecordManualPayment)
	paymentAuthed.GET("/:id", h.payments.GetByID)
	paymentAdmin := paymentAuthed.Group("payments-admin", "").Use(adminOnly)
	paymentAdmin.GET("", h.payments.List)
	paymentAdmin.PATCH("/:id", h.payments.Update)
	paymentAdmin.DELETE("/:id", h.payments.Delete)

	// Billing: invoices
	invoiceRoutes := router.NewDomainGroup("invoices", "/invoices").Use(h.jwtAuth)
	invoiceRoutes.GET("/:id", h.invoices.GetByID)
	invoiceRoutes.GET("/:id/pdf", h.invoices.DownloadPDF)
	invoiceAdmin := invoiceRoutes.Group("invoices-admin", "").Use(adminOnly)
	invoiceAdmin.GET("", h.invoices.List)
	invoiceAdmin.POST("", h.invoices.Create)
	invoiceAdmin.PATCH("/:id", h.invoices.Update)
	invoiceAdmin.PATCH("/:id/cancel", h.invoices.Cancel)
	invoiceAdmin.DELETE("/:id", h.invoices.Delete)

	// System
	systemRoutes := router.NewDomainGroup("system", "")
	systemRoutes.GET("/health", h.system.Health)
	systemRoutes.Group("system-admin", "/system").Use(h.jwtAuth, adminOnly).
		GET("/info", h.system.GetSystemInfo)

	r.Register(authRoutes).
		Register(userRoutes).
		Register(roleRoutes).
		Register(categoryRoutes).
		Register(productRoutes).
		Register(cartRoutes).
		Register(orderRoutes).
		Register(detailRoutes).
		Register(paymentRoutes).
		Register(invoiceRoutes).
		Register(systemRoutes)
}

// swaggerHandlers guards the Swagger UI; with RequireAuth only admins get in
func swaggerHandlers(cfg config.SwaggerConfig, jwtAuth gin.HandlerFunc) []gin.HandlerFunc {
	chain := middleware.SwaggerChain(cfg, jwtAuth, middleware.RequireRoles(identity.RoleAdmin))
	return append(chain, ginSwagger.WrapHandler(swaggerFiles.Handler))
}
