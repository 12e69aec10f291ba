package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans implements Gateway with Snap checkout and the Core API refund
// endpoint.  Amounts are sent in whole currency units.
type Midtrans struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

// NewMidtrans returns a Midtrans gateway.  production selects the live
// environment; otherwise the sandbox is used.
func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{serverKey: serverKey}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func wholeUnits(cents int64) (int64, error) {
	if cents <= 0 || cents%100 != 0 {
		return 0, fmt.Errorf("amount %d cents is not a positive whole unit", cents)
	}
	return cents / 100, nil
}

// CreateOrder opens a Snap transaction for the order.
func (m *Midtrans) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	gross, err := wholeUnits(req.AmountCents)
	if err != nil {
		return nil, err
	}
	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{OrderID: req.OrderID, GrossAmt: gross},
		CustomerDetail:     &midtrans.CustomerDetails{FName: req.CustomerName, Email: req.CustomerEmail},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.OrderID,
			Name:  truncate(req.Description, 50),
			Price: gross,
			Qty:   1,
		}},
	}
	resp, merr := m.snap.CreateTransaction(sreq)
	if merr != nil {
		return nil, merr
	}
	return &Order{OrderID: req.OrderID, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// Signature is SHA512(order_id + status_code + gross_amount + server_key)
// in hex, the value Midtrans puts in signature_key.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifyCallback checks the signature and amount and maps the transaction
// status to an Outcome.
func (m *Midtrans) VerifyCallback(_ context.Context, cb Callback, amountCents int64) (Outcome, error) {
	want := Signature(cb.OrderID, cb.StatusCode, cb.GrossAmount, m.serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(cb.SignatureKey))) != 1 {
		return OutcomePending, ErrInvalidSignature
	}
	gross, err := strconv.ParseFloat(cb.GrossAmount, 64)
	if err != nil || int64(math.Round(gross*100)) != amountCents {
		return OutcomePending, ErrAmountMismatch
	}
	return outcomeOf(cb.TransactionStatus, cb.FraudStatus), nil
}

func outcomeOf(status, fraud string) Outcome {
	switch strings.ToLower(status) {
	case "capture":
		if strings.EqualFold(fraud, "challenge") {
			return OutcomePending
		}
		return OutcomeSuccess
	case "settlement":
		return OutcomeSuccess
	case "deny", "cancel", "expire", "failure":
		return OutcomeFailed
	}
	return OutcomePending
}

// Refund issues a full or partial refund through the Core API.
func (m *Midtrans) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	amount, err := wholeUnits(req.AmountCents)
	if err != nil {
		return nil, err
	}
	resp, merr := m.core.RefundTransaction(req.OrderID, &coreapi.RefundReq{
		RefundKey: req.Key,
		Amount:    amount,
		Reason:    req.Reason,
	})
	if merr != nil {
		return nil, merr
	}
	if resp.StatusCode != "" && resp.StatusCode != "200" {
		return nil, fmt.Errorf("refund rejected: %s %s", resp.StatusCode, resp.StatusMessage)
	}
	id := resp.RefundKey
	if id == "" {
		id = req.Key
	}
	return &RefundResult{RefundID: id}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
