// Package engine manages the in-memory SQLite database whose full
// serialized image is written through to a blob slot after every mutation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/blob"
)

// ImageKey is the fixed blob key the database image lives under.
const ImageKey = "vocab.db"

// Session owns the lifecycle of the embedded database: lazy memoized open,
// bootstrap from the persisted image (or fresh schema), full-image export,
// and the write-through persist step.
type Session struct {
	store blob.Provider

	group singleflight.Group

	mu sync.Mutex
	db *sqlx.DB
}

// New creates a session backed by the given blob provider. Nothing is
// opened until the first call to Open.
func New(store blob.Provider) *Session {
	return &Session{store: store}
}

// Open returns the database handle, bootstrapping it on first use.
// Concurrent callers arriving before the bootstrap completes share one
// in-flight open and receive the same eventual handle.
func (s *Session) Open(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	if s.db != nil {
		db := s.db
		s.mu.Unlock()
		return db, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("open", func() (any, error) {
		s.mu.Lock()
		if s.db != nil {
			db := s.db
			s.mu.Unlock()
			return db, nil
		}
		s.mu.Unlock()

		db, err := s.bootstrap(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.db = db
		s.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sqlx.DB), nil
}

// bootstrap opens a fresh in-memory database, then either loads the
// persisted image or applies the schema when no image exists yet.
func (s *Session) bootstrap(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("engine: open: %w", err)
	}
	// Every new connection to :memory: is a separate empty database, so
	// the pool must pin the single connection for the session lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	image, err := s.store.Get(ImageKey)
	switch {
	case err == nil:
		if rawErr := rawConn(ctx, db, func(conn *sqlite3.SQLiteConn) error {
			return conn.Deserialize(image, "")
		}); rawErr != nil {
			db.Close()
			return nil, fmt.Errorf("engine: load image: %w", rawErr)
		}
	case errors.Is(err, blob.ErrKeyNotFound):
		if _, execErr := db.ExecContext(ctx, schemaSQL); execErr != nil {
			db.Close()
			return nil, fmt.Errorf("engine: apply schema: %w", execErr)
		}
	default:
		db.Close()
		return nil, fmt.Errorf("engine: read image: %w", err)
	}

	return db, nil
}

// Export returns the full serialized image of the current database.
func (s *Session) Export(ctx context.Context) ([]byte, error) {
	db, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	var image []byte
	if err := rawConn(ctx, db, func(conn *sqlite3.SQLiteConn) error {
		b, serErr := conn.Serialize("")
		if serErr != nil {
			return serErr
		}
		image = b
		return nil
	}); err != nil {
		return nil, fmt.Errorf("engine: serialize: %w", err)
	}
	return image, nil
}

// Persist exports the image and writes it through to the blob slot.
// A failed write wraps apperr.ErrPersist: the in-memory state stands but
// is ahead of the persisted image until the next successful write.
func (s *Session) Persist(ctx context.Context) error {
	image, err := s.Export(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Put(ImageKey, image); err != nil {
		return fmt.Errorf("engine: write image: %w: %w", apperr.ErrPersist, err)
	}
	return nil
}

// Restore overwrites the persisted image and cold-reopens the database
// from the new bytes, discarding all prior in-memory state.
func (s *Session) Restore(ctx context.Context, image []byte) error {
	if err := s.store.Put(ImageKey, image); err != nil {
		return fmt.Errorf("engine: write image: %w", err)
	}
	return s.Reload(ctx)
}

// Reload closes the current handle and re-runs the bootstrap from the
// blob slot.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	old := s.db
	s.db = nil
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	_, err := s.Open(ctx)
	return err
}

// Close releases the database handle. The next Open bootstraps again,
// which also gives tests a clean teardown point.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// rawConn runs fn against the underlying SQLite driver connection.
func rawConn(ctx context.Context, db *sqlx.DB, fn func(*sqlite3.SQLiteConn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("engine: unexpected driver connection %T", driverConn)
		}
		return fn(sc)
	})
}
