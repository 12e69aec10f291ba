package router

import "github.com/labstack/echo/v4"

// registerAdvocate mounts ADVOCATE endpoints: appointment decisions, the
// case lifecycle, hearings and assistant accounts.
func registerAdvocate(g *echo.Group, h Handlers) {
	g.PATCH("/appointments/:id/status", h.Appointments.UpdateStatus, advocateOnly)
	g.POST("/cases", h.Cases.Create, advocateOnly)
	g.PATCH("/cases/:id/status", h.Cases.UpdateStatus, advocateOnly)
	g.POST("/cases/:id/hearings", h.Cases.AddHearing, advocateOnly)
	g.POST("/assistants", h.Auth.CreateAssistant, advocateOnly)
}

// registerShared mounts endpoints open to every role.  Visibility and
// ownership rules live in the service layer.
func registerShared(g *echo.Group, h Handlers) {
	g.GET("/appointments", h.Appointments.List)
	g.GET("/appointments/:id", h.Appointments.Get)
	g.PUT("/appointments/:id/schedule", h.Appointments.Reschedule)
	g.GET("/appointments/:id/payment", h.Payments.ForAppointment)
	g.GET("/cases", h.Cases.List)
	g.GET("/cases/:id", h.Cases.Get)
	g.POST("/cases/:id/documents", h.Cases.Upload)
	g.GET("/documents/:id", h.Cases.Download)
	g.POST("/appointments/:id/chat", h.Chats.Open)
	g.GET("/chats/:id/messages", h.Chats.List)
	g.POST("/chats/:id/messages", h.Chats.Send)
}
