package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/logger"
)

const maxConflictRetries = 5

// Store is the badger document backend. Keys are doc:<collection>:<id>.
type Store struct {
	db     *badger.DB
	logger *logger.Logger
	stopGC context.CancelFunc
	gcDone chan struct{}
}

func NewStore(path string, log *logger.Logger) (*Store, error) {
	log = log.Named("kvstore")
	s := &Store{
		logger: log,
		gcDone: make(chan struct{}),
	}

	opts := badger.DefaultOptions(path)
	opts.Truncate = true
	opts.ValueLogLoadingMode = options.FileIO
	opts.NumVersionsToKeep = 1
	opts.Logger = log.Named("badger")

	db, err := badger.Open(opts)
	if err != nil {
		s.logger.Error("failed to open badger", zap.Error(err))
		return nil, err
	}
	s.db = db

	ctx, cancel := context.WithCancel(context.Background())
	s.stopGC = cancel
	go s.RunGC(ctx, time.Hour)

	return s, nil
}

func (s *Store) Close() error {
	s.stopGC()
	<-s.gcDone
	return s.db.Close()
}

func key(collection, id string) []byte {
	return []byte(fmt.Sprintf("doc:%v:%v", collection, id))
}

func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to read document", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	return body, nil
}

func (s *Store) Insert(ctx context.Context, collection, id string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key(collection, id)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if err == nil {
			return database.ErrExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, body)
	})
}

// Update retries when badger reports a write conflict with a concurrent
// transaction.
func (s *Store) Update(ctx context.Context, collection, id string, fn func([]byte, bool) ([]byte, error), upsert bool) error {
	k := key(collection, id)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			var (
				old   []byte
				found bool
			)
			item, err := txn.Get(k)
			switch {
			case err == nil:
				found = true
				if old, err = item.ValueCopy(nil); err != nil {
					return err
				}
			case errors.Is(err, badger.ErrKeyNotFound):
				if !upsert {
					return database.ErrNotFound
				}
			default:
				return err
			}

			body, err := fn(old, found)
			if err != nil {
				return err
			}
			return txn.Set(k, body)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			s.logger.Debug("write conflict, retrying", zap.String("collection", collection), zap.Int("attempt", attempt))
			continue
		}
		return err
	}
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key(collection, id)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return database.ErrNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

// RunGC compacts the value log on every tick until ctx is done.
func (s *Store) RunGC(ctx context.Context, every time.Duration) {
	defer close(s.gcDone)
	gcTicker := time.NewTicker(every)
	defer gcTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-gcTicker.C:
			for {
				err := s.db.RunValueLogGC(0.7)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.logger.Error("value log gc failed", zap.Error(err))
					}
					break
				}
			}
		}
	}
}
