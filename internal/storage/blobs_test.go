package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskRoundTrip(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 1024)
	require.NoError(t, err)
	ctx := context.Background()

	key, size, err := d.Put(ctx, "petition.PDF", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	rc, err := d.Open(ctx, key)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	require.NoError(t, d.Delete(ctx, key))
	_, err = d.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskRejectsOversize(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 4)
	require.NoError(t, err)
	_, _, err = d.Put(context.Background(), "a.txt", strings.NewReader("too large"))
	assert.Error(t, err)
}

func TestDiskRejectsTraversalKeys(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 0)
	require.NoError(t, err)
	_, err = d.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}
