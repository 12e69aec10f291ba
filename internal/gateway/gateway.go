// Package gateway is the payment gateway port used by the booking service
// and its Midtrans implementation.
package gateway

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a callback signature does not match.
var ErrInvalidSignature = errors.New("invalid payment signature")

// ErrAmountMismatch is returned when a callback reports a different amount
// than the one recorded for the order.
var ErrAmountMismatch = errors.New("payment amount mismatch")

// OrderRequest describes a new gateway order.
type OrderRequest struct {
	OrderID       string
	AmountCents   int64
	CustomerName  string
	CustomerEmail string
	Description   string
}

// Order is what the client needs to complete checkout.
type Order struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Callback is the gateway's asynchronous payment notification, field for
// field as it arrives.
type Callback struct {
	OrderID           string `json:"order_id" validate:"required"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
}

// Outcome is the settlement result a verified callback reports.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	}
	return "pending"
}

// RefundRequest asks the gateway to return money for an order.  Key makes
// retries of the same refund idempotent at the gateway.
type RefundRequest struct {
	OrderID     string
	Key         string
	AmountCents int64
	Reason      string
}

// RefundResult is the gateway's refund acknowledgement.
type RefundResult struct {
	RefundID string
}

// Gateway creates orders, authenticates callbacks and executes refunds.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifyCallback authenticates cb and checks that it reports
	// amountCents.  It performs no I/O.
	VerifyCallback(ctx context.Context, cb Callback, amountCents int64) (Outcome, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
