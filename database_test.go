package warden

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrntsrfr/warden/config"
	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/logger"
)

func TestOpenDatabase(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{"json", config.DatabaseConfig{Driver: "json", Path: filepath.Join(dir, "data.json")}},
		{"badger", config.DatabaseConfig{Driver: "badger", Path: filepath.Join(dir, "badger")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := OpenDatabase(tt.cfg, logger.Nop())
			require.NoError(t, err)
			defer db.Close()

			ctx := context.Background()
			require.NoError(t, db.Insert(ctx, "notes", "1", []byte(`{"notes":[]}`)))
			_, err = db.Get(ctx, "notes", "2")
			assert.ErrorIs(t, err, database.ErrNotFound)
		})
	}
}

func TestOpenDatabaseUnknownDriver(t *testing.T) {
	_, err := OpenDatabase(config.DatabaseConfig{Driver: "mongo"}, logger.Nop())
	assert.Error(t, err)
}
