package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/service"
)

// Appointments is the booking surface of the service layer.
type Appointments interface {
	CreateAppointment(ctx context.Context, actor model.Actor, req service.BookingRequest) (*model.Appointment, error)
	RescheduleAppointment(ctx context.Context, actor model.Actor, id uint64, req service.RescheduleRequest) (*model.Appointment, error)
	TransitionAppointmentStatus(ctx context.Context, actor model.Actor, id uint64, target string) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, actor model.Actor, id uint64, reason string) (*model.Appointment, error)
	ListAppointments(ctx context.Context, actor model.Actor, f model.AppointmentFilter) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, actor model.Actor, id uint64) (*model.Appointment, error)
}

// AppointmentHandler serves /v1/appointments.  Responses carry the
// derived end_time and is_past_due, evaluated in Loc.
type AppointmentHandler struct {
	Svc Appointments
	Loc *time.Location
	Now func() time.Time
}

func NewAppointmentHandler(svc Appointments, loc *time.Location) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{Svc: svc, Loc: loc, Now: time.Now}
}

func (h *AppointmentHandler) view(a *model.Appointment) model.AppointmentView {
	return a.View(h.Now(), h.Loc)
}

type bookingReq struct {
	AdvocateID         uint64 `json:"advocate_id" validate:"required"`
	Date               string `json:"date" validate:"required"`
	StartTime          string `json:"start_time" validate:"required"`
	DurationMinutes    int    `json:"duration_minutes" validate:"omitempty,min=1"`
	ProblemDescription string `json:"problem_description" validate:"max=2000"`
}

type rescheduleReq struct {
	Date            string `json:"date" validate:"required"`
	StartTime       string `json:"start_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

// parseSlot reads the calendar date and HH:MM start shared by booking
// requests.
func parseSlot(c echo.Context, date, start string) (time.Time, model.TimeOfDay, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, badRequest(c, "date must be YYYY-MM-DD")
	}
	t, err := model.ParseTimeOfDay(start)
	if err != nil {
		return time.Time{}, 0, badRequest(c, "start_time must be HH:MM")
	}
	return d, t, nil
}

// Create handles POST /v1/appointments for clients.
func (h *AppointmentHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	var req bookingReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	date, start, err := parseSlot(c, req.Date, req.StartTime)
	if err != nil {
		return done(err)
	}
	a, err := h.Svc.CreateAppointment(c.Request().Context(), actor, service.BookingRequest{
		AdvocateID:         req.AdvocateID,
		Date:               date,
		StartTime:          start,
		DurationMinutes:    req.DurationMinutes,
		ProblemDescription: req.ProblemDescription,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, h.view(a))
}

// Reschedule handles PUT /v1/appointments/:id/schedule.
func (h *AppointmentHandler) Reschedule(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req rescheduleReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	date, start, err := parseSlot(c, req.Date, req.StartTime)
	if err != nil {
		return done(err)
	}
	a, err := h.Svc.RescheduleAppointment(c.Request().Context(), actor, id, service.RescheduleRequest{
		Date: date, StartTime: start, DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(a))
}

// UpdateStatus handles PATCH /v1/appointments/:id/status for advocates.
func (h *AppointmentHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	a, err := h.Svc.TransitionAppointmentStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(a))
}

// Cancel handles POST /v1/appointments/:id/cancel for the booking client.
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req cancelReq
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return done(err)
		}
	}
	a, err := h.Svc.CancelAppointment(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(a))
}

// List handles GET /v1/appointments?status=&date=.  Results are scoped to
// the caller.
func (h *AppointmentHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	var f model.AppointmentFilter
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		f.Status = model.AppointmentStatus(strings.ToUpper(s))
	}
	if s := c.QueryParam("date"); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return done(badRequest(c, "date must be YYYY-MM-DD"))
		}
		f.Date = &d
	}
	list, err := h.Svc.ListAppointments(c.Request().Context(), actor, f)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]model.AppointmentView, len(list))
	for i := range list {
		views[i] = h.view(&list[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"appointments": views})
}

// Get handles GET /v1/appointments/:id.
func (h *AppointmentHandler) Get(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	a, err := h.Svc.GetAppointment(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(a))
}
