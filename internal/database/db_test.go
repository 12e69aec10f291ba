package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsSplitsEveryTable(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 15)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}

func TestSchemaKeepsUniqueGuards(t *testing.T) {
	for _, key := range []string{
		"uq_appointment_slot (advocate_id, appointment_date, appointment_time, slot_guard)",
		"uq_case_appointment (appointment_id)",
		"uq_payment_appointment (appointment_id)",
		"uq_payment_order (gateway_order_id)",
		"uq_refund_payment (payment_id)",
		"uq_review_appointment (client_id, appointment_id)",
		"uq_chat_appointment (appointment_id)",
	} {
		assert.Contains(t, schema, key)
	}
}
