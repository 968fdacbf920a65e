package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Items []string `json:"items"`
}

func TestCollection(t *testing.T) {
	ctx := context.Background()
	db, err := NewJsonDatabase("")
	require.NoError(t, err)
	c := NewCollection[doc](db, "docs")

	_, err = c.FindOne(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.InsertOne(ctx, "1", &doc{Items: []string{"a"}}))
	assert.ErrorIs(t, c.InsertOne(ctx, "1", &doc{}), ErrExists)

	got, err := c.FindOne(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Items)

	push := func(s string) func(*doc) error {
		return func(d *doc) error {
			d.Items = append(d.Items, s)
			return nil
		}
	}
	require.NoError(t, c.UpdateOne(ctx, "1", push("b"), false))
	got, err = c.FindOne(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Items)

	assert.ErrorIs(t, c.UpdateOne(ctx, "2", push("x"), false), ErrNotFound)
	require.NoError(t, c.UpdateOne(ctx, "2", push("x"), true))
	got, err = c.FindOne(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Items)

	require.NoError(t, c.DeleteOne(ctx, "1"))
	assert.ErrorIs(t, c.DeleteOne(ctx, "1"), ErrNotFound)
	_, err = c.FindOne(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionUpdateError(t *testing.T) {
	ctx := context.Background()
	db, err := NewJsonDatabase("")
	require.NoError(t, err)
	c := NewCollection[doc](db, "docs")
	require.NoError(t, c.InsertOne(ctx, "1", &doc{Items: []string{"a"}}))

	boom := errors.New("boom")
	err = c.UpdateOne(ctx, "1", func(d *doc) error {
		d.Items = nil
		return boom
	}, false)
	assert.ErrorIs(t, err, boom)

	got, err := c.FindOne(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Items)
}

func TestCollectionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	db, err := NewJsonDatabase("")
	require.NoError(t, err)

	require.NoError(t, NewCollection[doc](db, "a").InsertOne(ctx, "1", &doc{}))
	_, err = NewCollection[doc](db, "b").FindOne(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJsonDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	db, err := NewJsonDatabase(path)
	require.NoError(t, err)
	require.NoError(t, NewCollection[doc](db, "docs").InsertOne(ctx, "1", &doc{Items: []string{"kept"}}))
	require.NoError(t, db.Close())

	db, err = NewJsonDatabase(path)
	require.NoError(t, err)
	got, err := NewCollection[doc](db, "docs").FindOne(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, got.Items)
}

func TestJsonDatabaseCanceledContext(t *testing.T) {
	db, err := NewJsonDatabase("")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = db.Get(ctx, "docs", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
