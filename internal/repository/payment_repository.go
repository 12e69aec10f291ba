package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// PaymentRepo provides access to payments and refunds.
type PaymentRepo struct {
	q querier
}

// NewPaymentRepo returns a PaymentRepo bound to db.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{q: db} }

const paymentColumns = `id, appointment_id, client_id, gateway_order_id, gateway_payment_id,
	gateway_signature, amount_cents, status, created_at, updated_at`

func scanPayment(s rowScanner) (*model.Payment, error) {
	var (
		p         model.Payment
		paymentID sql.NullString
		signature sql.NullString
		status    string
	)
	if err := s.Scan(&p.ID, &p.AppointmentID, &p.ClientID, &p.GatewayOrderID, &paymentID,
		&signature, &p.AmountCents, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	if paymentID.Valid {
		v := paymentID.String
		p.GatewayPaymentID = &v
	}
	if signature.Valid {
		v := signature.String
		p.GatewaySignature = &v
	}
	return &p, nil
}

func (r *PaymentRepo) getPayment(ctx context.Context, where string, arg any, lock bool) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + where
	if lock {
		q += ` FOR UPDATE`
	}
	p, err := scanPayment(r.q.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// InsertPayment inserts p.  The unique keys on appointment_id and
// gateway_order_id surface as ErrDuplicate.
func (r *PaymentRepo) InsertPayment(ctx context.Context, p *model.Payment) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO payments (appointment_id, client_id, gateway_order_id, amount_cents, status)
		 VALUES (?, ?, ?, ?, ?)`,
		p.AppointmentID, p.ClientID, p.GatewayOrderID, p.AmountCents, string(p.Status))
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
	stored, err := r.GetPayment(ctx, uint64(id), false)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// GetPayment loads a payment by id.
func (r *PaymentRepo) GetPayment(ctx context.Context, id uint64, lock bool) (*model.Payment, error) {
	return r.getPayment(ctx, "id = ?", id, lock)
}

// GetPaymentByOrder loads a payment by its gateway order id.
func (r *PaymentRepo) GetPaymentByOrder(ctx context.Context, orderID string, lock bool) (*model.Payment, error) {
	return r.getPayment(ctx, "gateway_order_id = ?", orderID, lock)
}

// GetPaymentByAppointment loads the payment of an appointment.
func (r *PaymentRepo) GetPaymentByAppointment(ctx context.Context, appointmentID uint64) (*model.Payment, error) {
	return r.getPayment(ctx, "appointment_id = ?", appointmentID, false)
}

// RecordPaymentOutcome stores the settlement result of p.
func (r *PaymentRepo) RecordPaymentOutcome(ctx context.Context, p *model.Payment) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE payments SET status = ?, gateway_payment_id = ?, gateway_signature = ? WHERE id = ?`,
		string(p.Status), p.GatewayPaymentID, p.GatewaySignature, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertRefund records a refund.  refunds.payment_id is unique, so a
// payment is refunded at most once.
func (r *PaymentRepo) InsertRefund(ctx context.Context, rf *model.Refund) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO refunds (payment_id, refund_id, amount_cents, reason) VALUES (?, ?, ?, ?)`,
		rf.PaymentID, rf.RefundID, rf.AmountCents, rf.Reason)
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
	rf.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM refunds WHERE id = ?`, id).Scan(&rf.CreatedAt)
}

// PaymentStats aggregates payment totals.  Revenue counts SUCCESS rows
// only; refunded money is excluded.
func (r *PaymentRepo) PaymentStats(ctx context.Context) (model.PaymentStats, error) {
	var s model.PaymentStats
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status = 'SUCCESS'), 0),
		        COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(status = 'REFUNDED'), 0)
		 FROM payments`).Scan(&s.TotalPayments, &s.SuccessfulPayments, &s.RevenueCents, &s.Refunds)
	return s, err
}
