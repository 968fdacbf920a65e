package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/intrntsrfr/warden/logger"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// Backend stores encoded documents grouped in named collections.
type Backend interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Insert(ctx context.Context, collection, id string, body []byte) error
	// Update runs fn on the stored body and writes back its result. found is
	// false when nothing is stored under id; with upsert unset that case
	// returns ErrNotFound without calling fn.
	Update(ctx context.Context, collection, id string, fn func(body []byte, found bool) ([]byte, error), upsert bool) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

type Config struct {
	Log     *logger.Logger
	ConnStr string
}

// Collection is a typed view over one collection of a backend.
type Collection[T any] struct {
	name    string
	backend Backend
}

func NewCollection[T any](b Backend, name string) *Collection[T] {
	return &Collection[T]{name: name, backend: b}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// FindOne returns ErrNotFound when id has no document.
func (c *Collection[T]) FindOne(ctx context.Context, id string) (*T, error) {
	body, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode %v/%v: %w", c.name, id, err)
	}
	return &doc, nil
}

// InsertOne returns ErrExists when id already has a document.
func (c *Collection[T]) InsertOne(ctx context.Context, id string, doc *T) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %v/%v: %w", c.name, id, err)
	}
	return c.backend.Insert(ctx, c.name, id, body)
}

// UpdateOne applies update to the stored document. With upsert set, a
// missing document starts from the zero value.
func (c *Collection[T]) UpdateOne(ctx context.Context, id string, update func(*T) error, upsert bool) error {
	return c.backend.Update(ctx, c.name, id, func(body []byte, found bool) ([]byte, error) {
		var doc T
		if found {
			if err := json.Unmarshal(body, &doc); err != nil {
				return nil, fmt.Errorf("decode %v/%v: %w", c.name, id, err)
			}
		}
		if err := update(&doc); err != nil {
			return nil, err
		}
		return json.Marshal(&doc)
	}, upsert)
}

// DeleteOne returns ErrNotFound when id has no document.
func (c *Collection[T]) DeleteOne(ctx context.Context, id string) error {
	return c.backend.Delete(ctx, c.name, id)
}
