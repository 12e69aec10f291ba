package model

import "time"

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "CREATED"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Payment settles one appointment.  It mirrors the `payments` table, where
// appointment_id and gateway_order_id are unique.  AmountCents is written
// once on insert; no UPDATE statement touches it.
type Payment struct {
	ID               uint64        `json:"id"`
	AppointmentID    uint64        `json:"appointment_id"`
	ClientID         uint64        `json:"client_id"`
	GatewayOrderID   string        `json:"gateway_order_id"`
	GatewayPaymentID *string       `json:"gateway_payment_id,omitempty"`
	GatewaySignature *string       `json:"-"`
	AmountCents      int64         `json:"amount_cents"`
	Status           PaymentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Refund records money returned for a successful payment.
type Refund struct {
	ID          uint64    `json:"id"`
	PaymentID   uint64    `json:"payment_id"`
	RefundID    string    `json:"refund_id"` // gateway refund key
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentStats aggregates the payments table for administrators.
type PaymentStats struct {
	TotalPayments      int64 `json:"total_payments"`
	SuccessfulPayments int64 `json:"successful_payments"`
	RevenueCents       int64 `json:"total_revenue_cents"`
	Refunds            int64 `json:"refunds"`
}
