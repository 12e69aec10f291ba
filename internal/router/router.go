// Package router wires handlers and middleware onto Echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/handler"
	"github.com/iliyamo/advocate-booking/internal/middleware"
	"github.com/iliyamo/advocate-booking/internal/model"
)

// Handlers is everything the API serves.
type Handlers struct {
	Auth         *handler.AuthHandler
	Appointments *handler.AppointmentHandler
	Cases        *handler.CaseHandler
	Payments     *handler.PaymentHandler
	Directory    *handler.DirectoryHandler
	Chats        *handler.ChatHandler
	Health       echo.HandlerFunc
}

// Middleware carries the shared middleware instances.
type Middleware struct {
	JWTSecret string
	Actors    middleware.ActorResolver
	// RateLimit applies to the whole API, AuthRateLimit to the
	// credential endpoints and Cache to the public directory.
	RateLimit     echo.MiddlewareFunc
	AuthRateLimit echo.MiddlewareFunc
	Cache         echo.MiddlewareFunc
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

// Register mounts every route.  Authenticated routes live under /v1 behind
// JWTAuth and LoadActor; role checks are per route.
func Register(e *echo.Echo, h Handlers, mw Middleware) {
	e.GET("/healthz", h.Health)

	v1 := e.Group("/v1", orPass(mw.RateLimit))
	registerAuth(v1, h.Auth, orPass(mw.AuthRateLimit))
	registerPublic(v1, h, orPass(mw.Cache))

	authed := v1.Group("", middleware.JWTAuth(mw.JWTSecret), middleware.LoadActor(mw.Actors))
	authed.GET("/me", h.Auth.Me)
	authed.POST("/logout", h.Auth.Logout)
	authed.GET("/notifications", h.Directory.ListNotifications)
	authed.POST("/notifications/:id/read", h.Directory.MarkRead)

	registerClient(authed, h)
	registerAdvocate(authed, h)
	registerShared(authed, h)
	registerAdmin(authed, h)
}

// registerAuth mounts the credential endpoints that need no session.
func registerAuth(v1 *echo.Group, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := v1.Group("/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// registerPublic mounts the guest-visible advocate directory and the
// payment gateway webhook.
func registerPublic(v1 *echo.Group, h Handlers, cache echo.MiddlewareFunc) {
	v1.GET("/advocates", h.Directory.ListAdvocates, cache)
	v1.GET("/advocates/:id", h.Directory.GetAdvocate, cache)
	v1.GET("/advocates/:id/reviews", h.Directory.ListReviews, cache)
	v1.POST("/payments/webhook", h.Payments.Webhook)
}

var (
	clientOnly   = middleware.RequireRole(model.RoleClient)
	advocateOnly = middleware.RequireRole(model.RoleAdvocate)
	adminOnly    = middleware.RequireRole(model.RoleAdmin)
)
