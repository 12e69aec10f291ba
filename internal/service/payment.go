package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/advocate-booking/internal/gateway"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// Checkout is a freshly created payment plus what the client needs to
// complete it at the gateway.
type Checkout struct {
	Payment *model.Payment `json:"payment"`
	Order   *gateway.Order `json:"order"`
}

// CreatePayment opens a gateway order for an APPROVED appointment of the
// acting client and records a CREATED payment for its fee.  The gateway
// call happens between two units of work so no row lock is held across
// it; the unique key on payments.appointment_id settles a race.
func (s *Service) CreatePayment(ctx context.Context, actor model.Actor, appointmentID uint64) (*Checkout, error) {
	if actor.Role != model.RoleClient || actor.ClientID == nil {
		return nil, AuthorizationError("only clients can pay for appointments")
	}
	var appt *model.Appointment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAppointment(ctx, appointmentID, false)
		if err != nil {
			return missing(err, "appointment")
		}
		if !actor.IsClient(a.ClientID) {
			return AuthorizationError("only the client of this appointment can pay for it")
		}
		if a.Status != model.AppointmentApproved {
			return ValidationError("payment requires an approved appointment")
		}
		if a.FeeCents <= 0 {
			return ValidationError("appointment has no fee to pay")
		}
		switch _, err := tx.GetPaymentByAppointment(ctx, a.ID); {
		case err == nil:
			return ConflictError("a payment already exists for this appointment")
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	orderID := fmt.Sprintf("APT-%d-%s", appt.ID, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		OrderID:     orderID,
		AmountCents: appt.FeeCents,
		Description: fmt.Sprintf("Consultation #%d", appt.ID),
	})
	if err != nil {
		return nil, ExternalError(err, "payment gateway could not create the order")
	}

	p := &model.Payment{
		AppointmentID:  appt.ID,
		ClientID:       appt.ClientID,
		GatewayOrderID: order.OrderID,
		AmountCents:    appt.FeeCents,
		Status:         model.PaymentCreated,
	}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertPayment(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError("a payment already exists for this appointment")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Checkout{Payment: p, Order: order}, nil
}

// VerifyPayment applies a gateway callback.  The signature and amount are
// checked before anything is written; a failed check leaves the payment
// untouched.  Callbacks are delivered at least once, so a callback that
// repeats the recorded outcome is a no-op returning the payment as is.
func (s *Service) VerifyPayment(ctx context.Context, cb gateway.Callback) (*model.Payment, error) {
	if strings.TrimSpace(cb.OrderID) == "" {
		return nil, ValidationError("order id is required")
	}
	var (
		payment *model.Payment
		settled bool
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		p, err := tx.GetPaymentByOrder(ctx, cb.OrderID, true)
		if err != nil {
			return missing(err, "payment")
		}
		outcome, err := s.gateway.VerifyCallback(ctx, cb, p.AmountCents)
		if err != nil {
			return ExternalError(err, "payment verification failed")
		}
		payment = p

		switch p.Status {
		case model.PaymentSuccess, model.PaymentRefunded:
			if outcome == gateway.OutcomeFailed {
				return ConflictError("payment is already %s", strings.ToLower(string(p.Status)))
			}
			return nil
		case model.PaymentFailed:
			if outcome == gateway.OutcomeSuccess {
				return ConflictError("payment has already failed")
			}
			return nil
		}

		switch outcome {
		case gateway.OutcomeSuccess:
			p.Status = model.PaymentSuccess
		case gateway.OutcomeFailed:
			p.Status = model.PaymentFailed
		default:
			return nil
		}
		if cb.TransactionID != "" {
			id := cb.TransactionID
			p.GatewayPaymentID = &id
		}
		sig := cb.SignatureKey
		p.GatewaySignature = &sig
		if err := tx.RecordPaymentOutcome(ctx, p); err != nil {
			return err
		}
		if p.Status == model.PaymentSuccess {
			a, err := tx.GetAppointment(ctx, p.AppointmentID, true)
			if err != nil {
				return missing(err, "appointment")
			}
			a.IsPaid = true
			if err := tx.UpdateAppointment(ctx, a); err != nil {
				return err
			}
			settled = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled {
		s.notify(ctx, paymentEvent(payment, "Payment received",
			fmt.Sprintf("Payment for appointment #%d was received.", payment.AppointmentID)))
	}
	return payment, nil
}

// refundKey is stable per payment so a retried refund is deduplicated by
// the gateway.
func refundKey(paymentID uint64) string { return fmt.Sprintf("refund-%d", paymentID) }

// RefundPayment refunds a SUCCESS payment in full and records the refund.
// Only administrators may refund.
//
// The gateway call runs between two transactions so no payment row lock
// is held across network I/O.  The refund key is stable per payment, so a
// retry after a failed second transaction is deduplicated by the gateway
// and then recorded.
func (s *Service) RefundPayment(ctx context.Context, actor model.Actor, paymentID uint64, reason string) (*model.Refund, error) {
	if !actor.IsAdmin() {
		return nil, AuthorizationError("only administrators can refund payments")
	}
	var p *model.Payment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		p, err = refundablePayment(ctx, tx, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	res, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		OrderID:     p.GatewayOrderID,
		Key:         refundKey(p.ID),
		AmountCents: p.AmountCents,
		Reason:      reason,
	})
	if err != nil {
		return nil, ExternalError(err, "payment gateway could not refund the payment")
	}

	var refund *model.Refund
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		cur, err := refundablePayment(ctx, tx, paymentID)
		if err != nil {
			if IsKind(err, KindValidation) {
				return ConflictError("payment has already been refunded")
			}
			return err
		}
		r := &model.Refund{
			PaymentID:   cur.ID,
			RefundID:    res.RefundID,
			AmountCents: cur.AmountCents,
			Reason:      strings.TrimSpace(reason),
		}
		if err := tx.InsertRefund(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError("payment has already been refunded")
			}
			return err
		}
		cur.Status = model.PaymentRefunded
		if err := tx.RecordPaymentOutcome(ctx, cur); err != nil {
			return err
		}
		refund, p = r, cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, paymentEvent(p, "Payment refunded",
		fmt.Sprintf("Payment for appointment #%d was refunded.", p.AppointmentID)))
	return refund, nil
}

// refundablePayment locks the payment and requires it to be SUCCESS.
func refundablePayment(ctx context.Context, tx repository.Tx, id uint64) (*model.Payment, error) {
	p, err := tx.GetPayment(ctx, id, true)
	if err != nil {
		return nil, missing(err, "payment")
	}
	if p.Status != model.PaymentSuccess {
		return nil, ValidationError("only successful payments can be refunded")
	}
	return p, nil
}

// GetPaymentForAppointment returns the payment of an appointment visible
// to actor.
func (s *Service) GetPaymentForAppointment(ctx context.Context, actor model.Actor, appointmentID uint64) (*model.Payment, error) {
	var p *model.Payment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAppointment(ctx, appointmentID, false)
		if err != nil {
			return missing(err, "appointment")
		}
		if !canView(actor, a) {
			return NotFoundError("appointment not found")
		}
		p, err = tx.GetPaymentByAppointment(ctx, a.ID)
		return missing(err, "payment")
	})
	return p, err
}

// PaymentStats aggregates payment totals for administrators.
func (s *Service) PaymentStats(ctx context.Context, actor model.Actor) (model.PaymentStats, error) {
	var st model.PaymentStats
	if !actor.IsAdmin() {
		return st, AuthorizationError("only administrators can view payment statistics")
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		st, err = tx.PaymentStats(ctx)
		return err
	})
	return st, err
}

func paymentEvent(p *model.Payment, title, msg string) queue.NotificationEvent {
	return queue.NotificationEvent{
		Kind:     string(model.NotifyPayment),
		Title:    title,
		Message:  msg,
		ClientID: p.ClientID,
	}
}
