package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/service"
)

// Directory is the advocate directory, review and inbox surface of the
// service layer.
type Directory interface {
	ListAdvocates(ctx context.Context, verifiedOnly bool) ([]model.AdvocateSummary, error)
	GetAdvocate(ctx context.Context, id uint64) (*model.AdvocateSummary, error)
	VerifyAdvocate(ctx context.Context, actor model.Actor, advocateID uint64) error
	CreateReview(ctx context.Context, actor model.Actor, req service.ReviewRequest) (*model.Review, error)
	ListReviews(ctx context.Context, advocateID uint64) ([]model.Review, error)
	ListNotifications(ctx context.Context, actor model.Actor) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, actor model.Actor, id uint64) error
}

// DirectoryHandler serves the public advocate directory, reviews, admin
// verification and the notification inbox.
type DirectoryHandler struct {
	Svc Directory
	// Purge drops cached directory responses after a change.
	Purge func(ctx context.Context)
}

func NewDirectoryHandler(svc Directory, purge func(ctx context.Context)) *DirectoryHandler {
	if purge == nil {
		purge = func(context.Context) {}
	}
	return &DirectoryHandler{Svc: svc, Purge: purge}
}

type reviewReq struct {
	AppointmentID *uint64 `json:"appointment_id"`
	Rating        int     `json:"rating" validate:"required,min=1,max=5"`
	Comment       string  `json:"comment" validate:"max=2000"`
}

// ListAdvocates handles GET /v1/advocates.  Only verified advocates are
// listed publicly.
func (h *DirectoryHandler) ListAdvocates(c echo.Context) error {
	list, err := h.Svc.ListAdvocates(c.Request().Context(), true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"advocates": list})
}

// ListAllAdvocates handles GET /v1/admin/advocates, pending ones included.
func (h *DirectoryHandler) ListAllAdvocates(c echo.Context) error {
	list, err := h.Svc.ListAdvocates(c.Request().Context(), false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"advocates": list})
}

func (h *DirectoryHandler) GetAdvocate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	a, err := h.Svc.GetAdvocate(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *DirectoryHandler) ListReviews(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	list, err := h.Svc.ListReviews(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": list})
}

// CreateReview handles POST /v1/advocates/:id/reviews for clients.
func (h *DirectoryHandler) CreateReview(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	r, err := h.Svc.CreateReview(c.Request().Context(), actor, service.ReviewRequest{
		AdvocateID: id, AppointmentID: req.AppointmentID, Rating: req.Rating, Comment: req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	h.Purge(c.Request().Context())
	return c.JSON(http.StatusCreated, r)
}

// VerifyAdvocate handles POST /v1/admin/advocates/:id/verify.
func (h *DirectoryHandler) VerifyAdvocate(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	if err := h.Svc.VerifyAdvocate(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	h.Purge(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (h *DirectoryHandler) ListNotifications(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	list, err := h.Svc.ListNotifications(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *DirectoryHandler) MarkRead(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	if err := h.Svc.MarkNotificationRead(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
