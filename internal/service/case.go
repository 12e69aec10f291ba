package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// HearingRequest schedules a court appearance.
type HearingRequest struct {
	Date      time.Time
	Time      model.TimeOfDay
	CourtName string
	Notes     string
}

// DocumentUpload is a file attached to a case.
type DocumentUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Description string
}

var caseRank = map[model.CaseStatus]int{
	model.CaseOpen:       0,
	model.CaseInProgress: 1,
	model.CaseClosed:     2,
}

// CreateCase opens a case from an APPROVED appointment of the acting
// advocate.  The appointment row is locked and cases.appointment_id is
// unique, so concurrent attempts yield exactly one case.
func (s *Service) CreateCase(ctx context.Context, actor model.Actor, appointmentID uint64, title, description string) (*model.Case, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ValidationError("title is required")
	}
	var created *model.Case
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAppointment(ctx, appointmentID, true)
		if err != nil {
			return missing(err, "appointment")
		}
		if !actor.IsAdvocate(a.AdvocateID) {
			return AuthorizationError("only the advocate of this appointment can open a case")
		}
		if a.Status != model.AppointmentApproved {
			return ValidationError("a case can only be created for an approved appointment")
		}
		c := &model.Case{
			AppointmentID: a.ID,
			ClientID:      a.ClientID,
			AdvocateID:    a.AdvocateID,
			Title:         title,
			Description:   strings.TrimSpace(description),
			Status:        model.CaseOpen,
			IsActive:      true,
		}
		if err := tx.InsertCase(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError("a case already exists for this appointment")
			}
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, caseEvent(created, "Case opened", fmt.Sprintf("Case %q was opened.", created.Title)))
	return created, nil
}

// TransitionCaseStatus moves a case forward.  Skipping IN_PROGRESS is
// allowed; moving backwards or out of CLOSED is not.
func (s *Service) TransitionCaseStatus(ctx context.Context, actor model.Actor, caseID uint64, target string) (*model.Case, error) {
	to := model.CaseStatus(strings.ToUpper(strings.TrimSpace(target)))
	if _, ok := caseRank[to]; !ok {
		return nil, ValidationError("invalid status %q: allowed values are OPEN, IN_PROGRESS, CLOSED", target)
	}
	var updated *model.Case
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		c, err := tx.GetCase(ctx, caseID, true)
		if err != nil {
			return missing(err, "case")
		}
		if !actor.IsAdvocate(c.AdvocateID) {
			return AuthorizationError("only the advocate of this case can change its status")
		}
		if c.Status == model.CaseClosed {
			return ValidationError("cannot modify a closed case")
		}
		if caseRank[to] <= caseRank[c.Status] {
			return ValidationError("cannot move case from %s to %s", c.Status, to)
		}
		if err := tx.UpdateCaseStatus(ctx, c.ID, to); err != nil {
			return err
		}
		c.Status = to
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, caseEvent(updated, "Case updated", fmt.Sprintf("Case %q is now %s.", updated.Title, updated.Status)))
	return updated, nil
}

// AddHearing appends a hearing to an open case of the acting advocate.
func (s *Service) AddHearing(ctx context.Context, actor model.Actor, caseID uint64, req HearingRequest) (*model.CaseHearing, error) {
	court := strings.TrimSpace(req.CourtName)
	if court == "" {
		return nil, ValidationError("court name is required")
	}
	if req.Date.IsZero() {
		return nil, ValidationError("hearing date is required")
	}
	if req.Time < 0 || req.Time >= model.MinutesPerDay {
		return nil, ValidationError("invalid hearing time")
	}
	var (
		h *model.CaseHearing
		c *model.Case
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		c, err = tx.GetCase(ctx, caseID, true)
		if err != nil {
			return missing(err, "case")
		}
		if !actor.IsAdvocate(c.AdvocateID) {
			return AuthorizationError("only the advocate of this case can add hearings")
		}
		if c.Status == model.CaseClosed {
			return ValidationError("cannot add hearings to a closed case")
		}
		h = &model.CaseHearing{
			CaseID:      c.ID,
			HearingDate: model.CivilDate(req.Date),
			HearingTime: req.Time,
			CourtName:   court,
			Notes:       strings.TrimSpace(req.Notes),
		}
		return tx.InsertHearing(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, caseEvent(c, "Hearing scheduled",
		fmt.Sprintf("Hearing for %q at %s on %s %s.", c.Title, h.CourtName, h.HearingDate.Format(model.DateLayout), h.HearingTime.Short())))
	return h, nil
}

// isParty reports whether actor is the case's client or advocate.
func isParty(actor model.Actor, c *model.Case) bool {
	return actor.IsClient(c.ClientID) || actor.IsAdvocate(c.AdvocateID)
}

// UploadDocument stores a file for a case.  Either party may upload while
// the case is not CLOSED.  The blob is written outside the transaction and
// removed again if the row cannot be recorded.
func (s *Service) UploadDocument(ctx context.Context, actor model.Actor, caseID uint64, up DocumentUpload) (*model.CaseDocument, error) {
	name := filepath.Base(strings.TrimSpace(up.FileName))
	if name == "" || name == "." || name == "/" {
		return nil, ValidationError("file name is required")
	}
	if up.Body == nil {
		return nil, ValidationError("file is required")
	}
	if s.blobs == nil {
		return nil, ExternalError(nil, "document storage is not configured")
	}
	guard := func(tx repository.Tx) (*model.Case, error) {
		c, err := tx.GetCase(ctx, caseID, true)
		if err != nil {
			return nil, missing(err, "case")
		}
		if !isParty(actor, c) {
			return nil, AuthorizationError("only the client or advocate of this case can upload documents")
		}
		if c.Status == model.CaseClosed {
			return nil, ValidationError("cannot upload documents to a closed case")
		}
		return c, nil
	}
	if err := s.store.InTx(ctx, func(tx repository.Tx) error {
		_, err := guard(tx)
		return err
	}); err != nil {
		return nil, err
	}

	key, size, err := s.blobs.Put(ctx, name, up.Body)
	if err != nil {
		return nil, ExternalError(err, "could not store document")
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var (
		doc *model.CaseDocument
		c   *model.Case
	)
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if c, err = guard(tx); err != nil {
			return err
		}
		doc = &model.CaseDocument{
			CaseID:       c.ID,
			UploadedBy:   actor.UserID,
			UploaderRole: actor.Role,
			StorageKey:   key,
			FileName:     name,
			ContentType:  contentType,
			SizeBytes:    size,
			Description:  strings.TrimSpace(up.Description),
		}
		return tx.InsertDocument(ctx, doc)
	})
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.Printf("documents: orphaned blob %s: %v", key, derr)
		}
		return nil, err
	}
	s.notify(ctx, caseEvent(c, "Document uploaded", fmt.Sprintf("%s was added to case %q.", doc.FileName, c.Title)))
	return doc, nil
}

// ListCases returns the active cases visible to actor.
func (s *Service) ListCases(ctx context.Context, actor model.Actor) ([]model.Case, error) {
	var f model.CaseFilter
	switch {
	case actor.IsAdmin():
	case actor.Role == model.RoleClient && actor.ClientID != nil:
		f.ClientID = *actor.ClientID
	case actor.Role == model.RoleAdvocate && actor.AdvocateID != nil:
		f.AdvocateID = *actor.AdvocateID
	case actor.Role == model.RoleAssistant && actor.AssistantOf != nil:
		f.AdvocateID = *actor.AssistantOf
	default:
		return nil, AuthorizationError("no profile linked to this account")
	}
	var out []model.Case
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListCases(ctx, f)
		return err
	})
	return out, err
}

// viewCase loads a case readable by actor: its parties, the advocate's
// assistants and administrators.
func viewCase(ctx context.Context, tx repository.Tx, actor model.Actor, caseID uint64) (*model.Case, error) {
	c, err := tx.GetCase(ctx, caseID, false)
	if err != nil {
		return nil, missing(err, "case")
	}
	if !actor.IsAdmin() && !actor.IsClient(c.ClientID) && !actor.ActsFor(c.AdvocateID) {
		return nil, NotFoundError("case not found")
	}
	return c, nil
}

// GetCase returns one case visible to actor.
func (s *Service) GetCase(ctx context.Context, actor model.Actor, caseID uint64) (*model.Case, error) {
	var c *model.Case
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		c, err = viewCase(ctx, tx, actor, caseID)
		return err
	})
	return c, err
}

// ListHearings returns the hearings of a case visible to actor.
func (s *Service) ListHearings(ctx context.Context, actor model.Actor, caseID uint64) ([]model.CaseHearing, error) {
	var out []model.CaseHearing
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := viewCase(ctx, tx, actor, caseID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListHearings(ctx, caseID)
		return err
	})
	return out, err
}

// ListDocuments lists a case's documents for its client or advocate.
func (s *Service) ListDocuments(ctx context.Context, actor model.Actor, caseID uint64) ([]model.CaseDocument, error) {
	var out []model.CaseDocument
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		c, err := tx.GetCase(ctx, caseID, false)
		if err != nil {
			return missing(err, "case")
		}
		if !isParty(actor, c) {
			return NotFoundError("case not found")
		}
		out, err = tx.ListDocuments(ctx, caseID)
		return err
	})
	return out, err
}

// OpenDocument returns a document's metadata and content for a party of
// its case.  The caller closes the reader.
func (s *Service) OpenDocument(ctx context.Context, actor model.Actor, docID uint64) (*model.CaseDocument, io.ReadCloser, error) {
	var doc *model.CaseDocument
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		d, err := tx.GetDocument(ctx, docID)
		if err != nil {
			return missing(err, "document")
		}
		c, err := tx.GetCase(ctx, d.CaseID, false)
		if err != nil {
			return missing(err, "document")
		}
		if !isParty(actor, c) {
			return NotFoundError("document not found")
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if s.blobs == nil {
		return nil, nil, ExternalError(nil, "document storage is not configured")
	}
	rc, err := s.blobs.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, ExternalError(err, "could not read document")
	}
	return doc, rc, nil
}

func caseEvent(c *model.Case, title, msg string) queue.NotificationEvent {
	return queue.NotificationEvent{
		Kind:       string(model.NotifyCase),
		Title:      title,
		Message:    msg,
		ClientID:   c.ClientID,
		AdvocateID: c.AdvocateID,
	}
}
