package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/logger"
)

const schemaDocuments = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);
`

type PsqlDB struct {
	pool    *sqlx.DB
	log     *logger.Logger
	connStr string
}

func NewPSQLDatabase(c *Config) (*PsqlDB, error) {
	db := &PsqlDB{
		log:     c.Log,
		connStr: c.ConnStr,
	}

	pool, err := sqlx.Connect("postgres", db.connStr)
	if err != nil {
		db.log.Error("unable to connect to db", zap.Error(err))
		return nil, err
	}
	if _, err := pool.Exec(schemaDocuments); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db.pool = pool
	return db, nil
}

func (p *PsqlDB) GetConn() *sqlx.DB {
	return p.pool
}

func (p *PsqlDB) Close() error {
	return p.pool.Close()
}

func (p *PsqlDB) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var body []byte
	err := p.pool.GetContext(ctx, &body, "SELECT body FROM documents WHERE collection=$1 AND id=$2;", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return body, err
}

func (p *PsqlDB) Insert(ctx context.Context, collection, id string, body []byte) error {
	res, err := p.pool.ExecContext(ctx,
		"INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb) ON CONFLICT DO NOTHING;",
		collection, id, string(body))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// Update locks the row for the read-modify-write.
func (p *PsqlDB) Update(ctx context.Context, collection, id string, fn func([]byte, bool) ([]byte, error), upsert bool) error {
	tx, err := p.pool.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var old []byte
	found := true
	err = tx.GetContext(ctx, &old, "SELECT body FROM documents WHERE collection=$1 AND id=$2 FOR UPDATE;", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return err
	}
	if !found && !upsert {
		return ErrNotFound
	}

	body, err := fn(old, found)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body;`,
		collection, id, string(body))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PsqlDB) Delete(ctx context.Context, collection, id string) error {
	res, err := p.pool.ExecContext(ctx, "DELETE FROM documents WHERE collection=$1 AND id=$2;", collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
