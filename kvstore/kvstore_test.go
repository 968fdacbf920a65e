package kvstore

import (
	"context"
	"testing"

	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "notes", "1")
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, s.Insert(ctx, "notes", "1", []byte(`{"a":1}`)))
	assert.ErrorIs(t, s.Insert(ctx, "notes", "1", []byte(`{}`)), database.ErrExists)

	body, err := s.Get(ctx, "notes", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))

	err = s.Update(ctx, "notes", "1", func(old []byte, found bool) ([]byte, error) {
		assert.True(t, found)
		assert.JSONEq(t, `{"a":1}`, string(old))
		return []byte(`{"a":2}`), nil
	}, false)
	require.NoError(t, err)
	body, err = s.Get(ctx, "notes", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(body))

	require.NoError(t, s.Delete(ctx, "notes", "1"))
	assert.ErrorIs(t, s.Delete(ctx, "notes", "1"), database.ErrNotFound)
}

func TestStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	called := false
	err := s.Update(ctx, "warnings", "1", func([]byte, bool) ([]byte, error) {
		called = true
		return nil, nil
	}, false)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.False(t, called)

	err = s.Update(ctx, "warnings", "1", func(old []byte, found bool) ([]byte, error) {
		assert.False(t, found)
		return []byte(`{"n":1}`), nil
	}, true)
	require.NoError(t, err)

	body, err := s.Get(ctx, "warnings", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(body))
}

func TestStoreWithCollection(t *testing.T) {
	type record struct {
		Notes []string `json:"notes"`
	}
	ctx := context.Background()
	c := database.NewCollection[record](newTestStore(t), "notes")

	for _, n := range []string{"first", "second"} {
		n := n
		require.NoError(t, c.UpdateOne(ctx, "1", func(r *record) error {
			r.Notes = append(r.Notes, n)
			return nil
		}, true))
	}
	got, err := c.FindOne(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got.Notes)
}
