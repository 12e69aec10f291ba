package router

import "github.com/labstack/echo/v4"

// registerAdmin mounts ADMIN endpoints under /v1/admin.
func registerAdmin(g *echo.Group, h Handlers) {
	a := g.Group("/admin", adminOnly)
	a.GET("/advocates", h.Directory.ListAllAdvocates)
	a.POST("/advocates/:id/verify", h.Directory.VerifyAdvocate)
	a.POST("/payments/:id/refund", h.Payments.Refund)
	a.GET("/payments/stats", h.Payments.Stats)
}
