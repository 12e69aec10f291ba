package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// CaseRepo provides access to cases and their hearings and documents.
type CaseRepo struct {
	q querier
}

// NewCaseRepo returns a CaseRepo bound to db.
func NewCaseRepo(db *sql.DB) *CaseRepo { return &CaseRepo{q: db} }

const caseColumns = `id, appointment_id, client_id, advocate_id, title, description, status,
	is_active, created_at, updated_at`

func scanCase(s rowScanner) (*model.Case, error) {
	var (
		c      model.Case
		status string
	)
	if err := s.Scan(&c.ID, &c.AppointmentID, &c.ClientID, &c.AdvocateID, &c.Title, &c.Description,
		&status, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = model.CaseStatus(status)
	return &c, nil
}

// InsertCase inserts c.  A second case for the same appointment violates
// the unique key on appointment_id and yields ErrDuplicate.
func (r *CaseRepo) InsertCase(ctx context.Context, c *model.Case) error {
	const q = `INSERT INTO cases (appointment_id, client_id, advocate_id, title, description, status, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, c.AppointmentID, c.ClientID, c.AdvocateID, c.Title, c.Description,
		string(c.Status), c.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetCase(ctx, uint64(id), false)
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

// GetCase loads one case, optionally locking the row.
func (r *CaseRepo) GetCase(ctx context.Context, id uint64, lock bool) (*model.Case, error) {
	q := `SELECT ` + caseColumns + ` FROM cases WHERE id = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	c, err := scanCase(r.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// UpdateCaseStatus sets the status column.
func (r *CaseRepo) UpdateCaseStatus(ctx context.Context, id uint64, status model.CaseStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE cases SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCases returns active cases matching f, newest first.
func (r *CaseRepo) ListCases(ctx context.Context, f model.CaseFilter) ([]model.Case, error) {
	where := []string{"is_active = 1"}
	var args []any
	if f.ClientID != 0 {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.AdvocateID != 0 {
		where = append(where, "advocate_id = ?")
		args = append(args, f.AdvocateID)
	}
	q := `SELECT ` + caseColumns + ` FROM cases WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// InsertHearing appends a hearing to a case.
func (r *CaseRepo) InsertHearing(ctx context.Context, h *model.CaseHearing) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO case_hearings (case_id, hearing_date, hearing_time, court_name, notes) VALUES (?, ?, ?, ?, ?)`,
		h.CaseID, h.HearingDate.Format(model.DateLayout), h.HearingTime, h.CourtName, h.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM case_hearings WHERE id = ?`, id).Scan(&h.CreatedAt)
}

// ListHearings returns a case's hearings in calendar order.
func (r *CaseRepo) ListHearings(ctx context.Context, caseID uint64) ([]model.CaseHearing, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, case_id, hearing_date, hearing_time, court_name, notes, created_at
		 FROM case_hearings WHERE case_id = ? ORDER BY hearing_date, hearing_time`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CaseHearing{}
	for rows.Next() {
		var h model.CaseHearing
		if err := rows.Scan(&h.ID, &h.CaseID, &h.HearingDate, &h.HearingTime, &h.CourtName, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

const documentColumns = `id, case_id, uploaded_by, uploader_role, storage_key, file_name,
	content_type, size_bytes, description, created_at`

func scanDocument(s rowScanner) (*model.CaseDocument, error) {
	var (
		d    model.CaseDocument
		role string
	)
	if err := s.Scan(&d.ID, &d.CaseID, &d.UploadedBy, &role, &d.StorageKey, &d.FileName,
		&d.ContentType, &d.SizeBytes, &d.Description, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.UploaderRole = model.Role(role)
	return &d, nil
}

// InsertDocument records an uploaded file.
func (r *CaseRepo) InsertDocument(ctx context.Context, d *model.CaseDocument) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO case_documents
		 (case_id, uploaded_by, uploader_role, storage_key, file_name, content_type, size_bytes, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.CaseID, d.UploadedBy, string(d.UploaderRole), d.StorageKey, d.FileName, d.ContentType, d.SizeBytes, d.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM case_documents WHERE id = ?`, id).Scan(&d.CreatedAt)
}

// ListDocuments returns a case's documents, newest first.
func (r *CaseRepo) ListDocuments(ctx context.Context, caseID uint64) ([]model.CaseDocument, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM case_documents WHERE case_id = ? ORDER BY created_at DESC, id DESC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CaseDocument{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// GetDocument loads one document row.
func (r *CaseRepo) GetDocument(ctx context.Context, id uint64) (*model.CaseDocument, error) {
	d, err := scanDocument(r.q.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM case_documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}
