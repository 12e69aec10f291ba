package router

import "github.com/labstack/echo/v4"

// registerClient mounts CLIENT endpoints: booking, cancelling, paying and
// reviewing.  Ownership is checked by the service layer.
func registerClient(g *echo.Group, h Handlers) {
	g.POST("/appointments", h.Appointments.Create, clientOnly)
	g.POST("/appointments/:id/cancel", h.Appointments.Cancel, clientOnly)
	g.POST("/appointments/:id/payment", h.Payments.Checkout, clientOnly)
	g.POST("/advocates/:id/reviews", h.Directory.CreateReview, clientOnly)
}
