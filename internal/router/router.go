package router // package router wires handlers and middleware to URL paths

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/lulgamer69/event-ticket-system/internal/handler"
	"github.com/lulgamer69/event-ticket-system/internal/middleware"
	"github.com/lulgamer69/event-ticket-system/internal/model"
)

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the parent-facing endpoints.  None of them need
// a token; write endpoints go through the rate limiter and the event
// description through the response cache.
func RegisterPublic(e *echo.Echo, h *handler.RegistrationHandler, limit, cache echo.MiddlewareFunc) {
	e.GET("/v1/event", h.Event, cache)

	g := e.Group("/v1/registrations")
	g.POST("", h.Register, limit)
	g.GET("/:ticket", h.Lookup)
	g.POST("/:ticket/payment", h.InitiatePayment, limit)
	g.POST("/:ticket/payment-proof", h.UploadProof, limit)

	e.GET("/v1/tickets/:ticket/document", h.Document)

	// called by Midtrans, authenticated by the notification signature
	e.POST("/v1/payments/midtrans/notification", h.GatewayNotification)
}

// RegisterAuth registers staff login, token refresh and logout under
// /v1/auth and the protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleGate),
	)
}

// RegisterGate registers redemption for GATE and ADMIN staff.  The limiter
// runs after JWTAuth so it can key by staff id.
func RegisterGate(e *echo.Echo, h *handler.GateHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/gate",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGate, model.RoleAdmin),
		limit,
	)
	g.POST("/redeem", h.Redeem)
}

// RegisterAdmin registers payment review, statistics, the outbound message
// view and staff management.  ADMIN only.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, s *handler.StaffHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/payments", a.ListPayments)
	g.POST("/payments/:ticket/verify", a.VerifyPayment)
	g.GET("/stats", a.Stats)
	g.GET("/messages", a.ListMessages)
	g.POST("/messages/:id/resend", a.ResendMessage)

	g.GET("/staff", s.List)
	g.POST("/staff", s.Create)
	g.PATCH("/staff/:id/active", s.SetActive)
}
