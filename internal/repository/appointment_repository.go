package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// AppointmentRepo provides CRUD operations for the appointments table.
// Dates are DATE columns and start times TIME columns, both interpreted in
// the business timezone; created_at/updated_at are UTC.
type AppointmentRepo struct {
	q querier
}

// NewAppointmentRepo returns an AppointmentRepo bound to db.
func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{q: db} }

const appointmentColumns = `id, advocate_id, client_id, appointment_date, appointment_time,
	duration_minutes, problem_description, remarks, status, fee_cents, is_paid, is_active,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(s rowScanner) (*model.Appointment, error) {
	var (
		a       model.Appointment
		remarks sql.NullString
		status  string
	)
	err := s.Scan(&a.ID, &a.AdvocateID, &a.ClientID, &a.Date, &a.StartTime,
		&a.DurationMinutes, &a.ProblemDescription, &remarks, &status, &a.FeeCents, &a.IsPaid, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = model.AppointmentStatus(status)
	if remarks.Valid {
		r := remarks.String
		a.Remarks = &r
	}
	return &a, nil
}

// InsertAppointment inserts a and reads back the generated id and
// timestamps.  A unique key violation on the active start slot is
// reported as ErrDuplicate.
func (r *AppointmentRepo) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	const q = `INSERT INTO appointments
		(advocate_id, client_id, appointment_date, appointment_time, duration_minutes,
		 problem_description, remarks, status, fee_cents, is_paid, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, a.AdvocateID, a.ClientID, a.Date.Format(model.DateLayout), a.StartTime,
		a.DurationMinutes, a.ProblemDescription, a.Remarks, string(a.Status), a.FeeCents, a.IsPaid, a.IsActive)
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
	stored, err := r.GetAppointment(ctx, uint64(id), false)
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

// GetAppointment loads one appointment.  With lock set the row stays
// locked until the transaction ends.
func (r *AppointmentRepo) GetAppointment(ctx context.Context, id uint64, lock bool) (*model.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	a, err := scanAppointment(r.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// UpdateAppointment writes the mutable columns of a.
func (r *AppointmentRepo) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	const q = `UPDATE appointments
		SET appointment_date = ?, appointment_time = ?, duration_minutes = ?, remarks = ?,
		    status = ?, is_paid = ?, is_active = ?
		WHERE id = ?`
	_, err := r.q.ExecContext(ctx, q, a.Date.Format(model.DateLayout), a.StartTime, a.DurationMinutes,
		a.Remarks, string(a.Status), a.IsPaid, a.IsActive, a.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// BlockingAppointmentsOn returns the conflict set for a booking: active
// PENDING or APPROVED appointments of the advocate on date.
//
// The read is a locking read.  Under REPEATABLE READ a plain SELECT would
// see the snapshot taken by the first read of the transaction, which can
// predate a booking committed while the caller waited on the advocate lock.
func (r *AppointmentRepo) BlockingAppointmentsOn(ctx context.Context, advocateID uint64, date time.Time, excludeID uint64) ([]model.Appointment, error) {
	const q = `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE advocate_id = ? AND appointment_date = ? AND is_active = 1
		  AND status IN ('PENDING', 'APPROVED') AND id <> ?
		ORDER BY appointment_time
		FOR UPDATE`
	return r.list(ctx, q, advocateID, date.Format(model.DateLayout), excludeID)
}

// ListAppointments returns appointments matching f, newest first.
func (r *AppointmentRepo) ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	var (
		where []string
		args  []any
	)
	if f.ClientID != 0 {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.AdvocateID != 0 {
		where = append(where, "advocate_id = ?")
		args = append(args, f.AdvocateID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Date != nil {
		where = append(where, "appointment_date = ?")
		args = append(args, f.Date.Format(model.DateLayout))
	}
	q := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, args...)
}

func (r *AppointmentRepo) list(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
