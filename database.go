package warden

import (
	"fmt"

	"github.com/intrntsrfr/warden/config"
	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/kvstore"
	"github.com/intrntsrfr/warden/logger"
)

// OpenDatabase opens the document backend named by c.Driver.
func OpenDatabase(c config.DatabaseConfig, log *logger.Logger) (database.Backend, error) {
	var (
		db  database.Backend
		err error
	)
	switch c.Driver {
	case "badger":
		db, err = kvstore.NewStore(c.Path, log)
	case "postgres":
		db, err = database.NewPSQLDatabase(&database.Config{
			Log:     log.Named("psql"),
			ConnStr: c.ConnStr,
		})
	case "json":
		db, err = database.NewJsonDatabase(c.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", c.Driver)
	}
	if err != nil {
		log.LogEvent(logger.Event{
			Category:    logger.CategoryDatabase,
			Location:    "warden.OpenDatabase",
			Description: fmt.Sprintf("could not open %v backend: %v", c.Driver, err),
		}, logger.VerbosityError)
		return nil, err
	}

	log.LogEvent(logger.Event{
		Category:    logger.CategoryDatabase,
		Location:    "warden.OpenDatabase",
		Description: fmt.Sprintf("opened %v backend", c.Driver),
	}, logger.VerbosityInfo)
	return db, nil
}
