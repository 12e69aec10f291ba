package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/gateway"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/service"
)

// Payments is the payment surface of the service layer.
type Payments interface {
	CreatePayment(ctx context.Context, actor model.Actor, appointmentID uint64) (*service.Checkout, error)
	VerifyPayment(ctx context.Context, cb gateway.Callback) (*model.Payment, error)
	RefundPayment(ctx context.Context, actor model.Actor, paymentID uint64, reason string) (*model.Refund, error)
	GetPaymentForAppointment(ctx context.Context, actor model.Actor, appointmentID uint64) (*model.Payment, error)
	PaymentStats(ctx context.Context, actor model.Actor) (model.PaymentStats, error)
}

// PaymentHandler serves checkout, the gateway webhook and admin refunds.
type PaymentHandler struct {
	Svc Payments
}

func NewPaymentHandler(svc Payments) *PaymentHandler { return &PaymentHandler{Svc: svc} }

type refundReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Checkout handles POST /v1/appointments/:id/payment.  The response
// carries the gateway redirect URL the client pays at.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	co, err := h.Svc.CreatePayment(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, co)
}

// ForAppointment handles GET /v1/appointments/:id/payment.
func (h *PaymentHandler) ForAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	p, err := h.Svc.GetPaymentForAppointment(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Webhook handles the unauthenticated gateway notification at
// POST /v1/payments/webhook.  Authenticity comes from the signature.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var cb gateway.Callback
	if err := bind(c, &cb); err != nil {
		return done(err)
	}
	p, err := h.Svc.VerifyPayment(c.Request().Context(), cb)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order_id": p.GatewayOrderID, "status": p.Status})
}

// Refund handles POST /v1/admin/payments/:id/refund.
func (h *PaymentHandler) Refund(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req refundReq
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return done(err)
		}
	}
	r, err := h.Svc.RefundPayment(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Stats handles GET /v1/admin/payments/stats.
func (h *PaymentHandler) Stats(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	st, err := h.Svc.PaymentStats(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
