package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/service"
)

// Cases is the case lifecycle surface of the service layer.
type Cases interface {
	CreateCase(ctx context.Context, actor model.Actor, appointmentID uint64, title, description string) (*model.Case, error)
	TransitionCaseStatus(ctx context.Context, actor model.Actor, caseID uint64, target string) (*model.Case, error)
	AddHearing(ctx context.Context, actor model.Actor, caseID uint64, req service.HearingRequest) (*model.CaseHearing, error)
	UploadDocument(ctx context.Context, actor model.Actor, caseID uint64, up service.DocumentUpload) (*model.CaseDocument, error)
	ListCases(ctx context.Context, actor model.Actor) ([]model.Case, error)
	GetCase(ctx context.Context, actor model.Actor, caseID uint64) (*model.Case, error)
	ListHearings(ctx context.Context, actor model.Actor, caseID uint64) ([]model.CaseHearing, error)
	ListDocuments(ctx context.Context, actor model.Actor, caseID uint64) ([]model.CaseDocument, error)
	OpenDocument(ctx context.Context, actor model.Actor, docID uint64) (*model.CaseDocument, io.ReadCloser, error)
}

// CaseHandler serves /v1/cases and /v1/documents.
type CaseHandler struct {
	Svc Cases
	// MaxUpload caps a document upload in bytes.
	MaxUpload int64
}

func NewCaseHandler(svc Cases, maxUpload int64) *CaseHandler {
	return &CaseHandler{Svc: svc, MaxUpload: maxUpload}
}

type createCaseReq struct {
	AppointmentID uint64 `json:"appointment_id" validate:"required"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=5000"`
}

type hearingReq struct {
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time" validate:"required"`
	CourtName string `json:"court_name" validate:"required,max=200"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// Create handles POST /v1/cases for advocates.
func (h *CaseHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	var req createCaseReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	cs, err := h.Svc.CreateCase(c.Request().Context(), actor, req.AppointmentID, req.Title, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cs)
}

// UpdateStatus handles PATCH /v1/cases/:id/status.
func (h *CaseHandler) UpdateStatus(c echo.Context) error {
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
	cs, err := h.Svc.TransitionCaseStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *CaseHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	list, err := h.Svc.ListCases(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cases": list})
}

// Get returns the case with its hearings and documents.
func (h *CaseHandler) Get(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	ctx := c.Request().Context()
	cs, err := h.Svc.GetCase(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	hearings, err := h.Svc.ListHearings(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{"case": cs, "hearings": hearings}
	// assistants see the case but not its documents
	switch docs, err := h.Svc.ListDocuments(ctx, actor, id); {
	case err == nil:
		resp["documents"] = docs
	case !service.IsKind(err, service.KindNotFound):
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// AddHearing handles POST /v1/cases/:id/hearings for the case advocate.
func (h *CaseHandler) AddHearing(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req hearingReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	date, at, err := parseSlot(c, req.Date, req.Time)
	if err != nil {
		return done(err)
	}
	hr, err := h.Svc.AddHearing(c.Request().Context(), actor, id, service.HearingRequest{
		Date: date, Time: at, CourtName: req.CourtName, Notes: req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, hr)
}

// Upload handles multipart POST /v1/cases/:id/documents with a "file"
// part and an optional "description" field.
func (h *CaseHandler) Upload(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	if h.MaxUpload > 0 {
		// multipart overhead gets a little headroom over the file limit
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxUpload+1<<16)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return done(badRequest(c, "file is required"))
	}
	if h.MaxUpload > 0 && fh.Size > h.MaxUpload {
		return done(badRequest(c, fmt.Sprintf("file exceeds %d bytes", h.MaxUpload)))
	}
	f, err := fh.Open()
	if err != nil {
		return done(badRequest(c, "unreadable file"))
	}
	defer f.Close()

	doc, err := h.Svc.UploadDocument(c.Request().Context(), actor, id, service.DocumentUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Body:        f,
		Description: c.FormValue("description"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// Download streams GET /v1/documents/:id to a case party.
func (h *CaseHandler) Download(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	doc, rc, err := h.Svc.OpenDocument(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	defer rc.Close()
	ct := doc.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.FileName))
	return c.Stream(http.StatusOK, ct, rc)
}
