package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListChatMessagesPagesByID(t *testing.T) {
	rec := &recorder{}
	repo := &ChatRepo{q: rec}

	_, err := repo.ListChatMessages(context.Background(), 3, 40, 100)
	require.ErrorIs(t, err, errRecorded)

	q, args := rec.last(t)
	assert.Contains(t, q, "WHERE room_id = ? AND id > ? ORDER BY id LIMIT ?")
	assert.Equal(t, []any{uint64(3), uint64(40), 100}, args)
}
