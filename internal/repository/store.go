package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so each repository can
// run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AdvocateStore reads and locks advocate profiles.
type AdvocateStore interface {
	GetAdvocate(ctx context.Context, id uint64) (*model.AdvocateProfile, error)
	// LockAdvocate reads the profile with SELECT ... FOR UPDATE.  Booking
	// writes for one advocate serialize on this row lock.
	LockAdvocate(ctx context.Context, id uint64) (*model.AdvocateProfile, error)
	SetAdvocateVerified(ctx context.Context, id uint64, verified bool) error
	ListAdvocates(ctx context.Context, verifiedOnly bool) ([]model.AdvocateSummary, error)
	GetAdvocateSummary(ctx context.Context, id uint64) (*model.AdvocateSummary, error)
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id uint64, lock bool) (*model.Appointment, error)
	// UpdateAppointment writes the mutable columns: date, start time,
	// duration, remarks, status, is_paid and is_active.
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	// BlockingAppointmentsOn lists active PENDING/APPROVED appointments of
	// the advocate on date, skipping excludeID when non-zero.
	BlockingAppointmentsOn(ctx context.Context, advocateID uint64, date time.Time, excludeID uint64) ([]model.Appointment, error)
	ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error)
}

// CaseStore persists cases and their child records.
type CaseStore interface {
	InsertCase(ctx context.Context, c *model.Case) error
	GetCase(ctx context.Context, id uint64, lock bool) (*model.Case, error)
	UpdateCaseStatus(ctx context.Context, id uint64, status model.CaseStatus) error
	ListCases(ctx context.Context, f model.CaseFilter) ([]model.Case, error)
	InsertHearing(ctx context.Context, h *model.CaseHearing) error
	ListHearings(ctx context.Context, caseID uint64) ([]model.CaseHearing, error)
	InsertDocument(ctx context.Context, d *model.CaseDocument) error
	ListDocuments(ctx context.Context, caseID uint64) ([]model.CaseDocument, error)
	GetDocument(ctx context.Context, id uint64) (*model.CaseDocument, error)
}

// PaymentStore persists payments and refunds.
type PaymentStore interface {
	InsertPayment(ctx context.Context, p *model.Payment) error
	GetPayment(ctx context.Context, id uint64, lock bool) (*model.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID string, lock bool) (*model.Payment, error)
	GetPaymentByAppointment(ctx context.Context, appointmentID uint64) (*model.Payment, error)
	// RecordPaymentOutcome writes status and the gateway payment id and
	// signature.  The amount column is never part of an update.
	RecordPaymentOutcome(ctx context.Context, p *model.Payment) error
	InsertRefund(ctx context.Context, r *model.Refund) error
	PaymentStats(ctx context.Context) (model.PaymentStats, error)
}

// ReviewStore persists advocate reviews.
type ReviewStore interface {
	InsertReview(ctx context.Context, r *model.Review) error
	ListReviews(ctx context.Context, advocateID uint64) ([]model.Review, error)
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID uint64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uint64) error
}

// ChatStore persists appointment chat rooms and messages.
type ChatStore interface {
	InsertChatRoom(ctx context.Context, room *model.ChatRoom) error
	GetChatRoom(ctx context.Context, id uint64) (*model.ChatRoom, error)
	GetChatRoomByAppointment(ctx context.Context, appointmentID uint64) (*model.ChatRoom, error)
	InsertChatMessage(ctx context.Context, m *model.ChatMessage) error
	ListChatMessages(ctx context.Context, roomID, afterID uint64, limit int) ([]model.ChatMessage, error)
}

// Tx is one unit of work over every aggregate.
type Tx interface {
	AdvocateStore
	AppointmentStore
	CaseStore
	PaymentStore
	ReviewStore
	NotificationStore
	ChatStore
}

// Store runs units of work.  fn's writes are committed when it returns nil
// and rolled back otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// DB exposes the underlying handle for repositories used outside a unit of
// work (auth, notification consumer).
func (s *SQLStore) DB() *sql.DB { return s.db }

// sqlTx binds every repository to one *sql.Tx.  The embedded repositories
// contribute the Tx method set.
type sqlTx struct {
	*AdvocateRepo
	*AppointmentRepo
	*CaseRepo
	*PaymentRepo
	*ReviewRepo
	*NotificationRepo
	*ChatRepo
}

// InTx begins a transaction, runs fn and commits.  A non-nil error from fn
// or from commit rolls the transaction back and is returned unchanged.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	scope := &sqlTx{
		AdvocateRepo:     &AdvocateRepo{q: tx},
		AppointmentRepo:  &AppointmentRepo{q: tx},
		CaseRepo:         &CaseRepo{q: tx},
		PaymentRepo:      &PaymentRepo{q: tx},
		ReviewRepo:       &ReviewRepo{q: tx},
		NotificationRepo: &NotificationRepo{q: tx},
		ChatRepo:         &ChatRepo{q: tx},
	}
	if err := fn(scope); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
