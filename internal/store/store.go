// Package store implements the vocabulary store facade: schema-owning
// CRUD, idempotent upserts, study-queue sampling, daily mastery stats,
// and whole-dataset import/export. Every mutating operation applies its
// statements to the embedded engine and then writes the full database
// image through to the persistence backend.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/engine"
)

// queueSampleSize caps the randomized study queue.
const queueSampleSize = 50

// statsWindowDays is the size of the recent daily-stats window.
const statsWindowDays = 14

// Store is the facade over the engine session. All entity rows are owned
// here; consumers receive detached record copies.
type Store struct {
	session *engine.Session

	// mu serializes mutate-then-persist sequences. The read-check-then-
	// insert upserts are not atomic on their own, so overlapping writers
	// on the same natural key must not interleave.
	mu sync.Mutex
}

// New creates a store over the given engine session.
func New(session *engine.Session) *Store {
	return &Store{session: session}
}

// UpsertNotebook returns the id of the notebook with the given name,
// inserting it first if absent. Idempotent: repeated calls return the
// same id and create exactly one row.
func (s *Store) UpsertNotebook(ctx context.Context, name string) (int64, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, inserted, err := upsertNotebook(ctx, db, name)
	if err != nil {
		return 0, err
	}
	if inserted {
		if err := s.session.Persist(ctx); err != nil {
			return id, err
		}
	}
	return id, nil
}

// UpsertChapter returns the id of the chapter with the given name within
// the notebook, inserting it first if absent. The notebook must already
// exist; otherwise apperr.ErrNotFound is returned.
func (s *Store) UpsertChapter(ctx context.Context, notebookID int64, name string) (int64, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := db.GetContext(ctx, &count, `SELECT count(*) FROM notebooks WHERE id = ?`, notebookID); err != nil {
		return 0, fmt.Errorf("store: lookup notebook: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("store: notebook %d: %w", notebookID, apperr.ErrNotFound)
	}

	id, inserted, err := upsertChapter(ctx, db, notebookID, name)
	if err != nil {
		return 0, err
	}
	if inserted {
		if err := s.session.Persist(ctx); err != nil {
			return id, err
		}
	}
	return id, nil
}

// ListNotebooks returns all notebooks ordered by id ascending.
func (s *Store) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return nil, err
	}
	var out []Notebook
	if err := db.SelectContext(ctx, &out, `SELECT id, name FROM notebooks ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("store: list notebooks: %w", err)
	}
	return out, nil
}

// ListChapters returns all chapters ordered by (notebook_id, id) ascending.
func (s *Store) ListChapters(ctx context.Context) ([]Chapter, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return nil, err
	}
	var out []Chapter
	if err := db.SelectContext(ctx, &out, `SELECT id, notebook_id, name FROM chapters ORDER BY notebook_id, id ASC`); err != nil {
		return nil, fmt.Errorf("store: list chapters: %w", err)
	}
	return out, nil
}

// ListWords returns words matching the filter, most recent first.
func (s *Store) ListWords(ctx context.Context, f Filter) ([]Word, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return nil, err
	}
	where, args := f.predicate()
	query := `SELECT id, notebook_id, chapter_id, headword, phonetic, html_content, tags FROM words`
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY id DESC`

	var out []Word
	if err := db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("store: list words: %w", err)
	}
	return out, nil
}

// SampleQueue returns up to 50 matching words in randomized order. Each
// call draws an independent unseeded sample.
func (s *Store) SampleQueue(ctx context.Context, f Filter) ([]QueueItem, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return nil, err
	}
	where, args := f.predicate()
	query := `SELECT id, headword, html_content FROM words`
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, queueSampleSize)

	var out []QueueItem
	if err := db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("store: sample queue: %w", err)
	}
	return out, nil
}

// AddWord inserts a single word, resolving its notebook and chapter via
// the same upsert path as bulk import. Returns apperr.ErrConflict when an
// identical (notebook, chapter, headword) row already exists.
func (s *Store) AddWord(ctx context.Context, item ImportItem) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, fmt.Errorf("store: invalid word: %w", err)
	}
	db, err := s.session.Open(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err = engine.RunInTx(ctx, db, func(ctx context.Context, tx *sqlx.Tx) error {
		notebookID, _, upErr := upsertNotebook(ctx, tx, item.Notebook)
		if upErr != nil {
			return upErr
		}
		chapterID, _, upErr := upsertChapter(ctx, tx, notebookID, item.Chapter)
		if upErr != nil {
			return upErr
		}
		exists, exErr := wordExists(ctx, tx, notebookID, chapterID, item.Headword)
		if exErr != nil {
			return exErr
		}
		if exists {
			return apperr.ErrConflict
		}
		var insErr error
		id, insErr = insertWord(ctx, tx, notebookID, chapterID, item)
		return insErr
	})
	if err != nil {
		return 0, err
	}
	if err := s.session.Persist(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// DeleteWord removes the word with the given id. Deleting an absent id is
// a no-op and leaves the persisted image untouched.
func (s *Store) DeleteWord(ctx context.Context, id int64) error {
	db, err := s.session.Open(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := db.ExecContext(ctx, `DELETE FROM words WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete word: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return s.session.Persist(ctx)
}

// RecordMastery increments the learned count for the given YYYY-MM-DD
// date, creating the row lazily on the first mastery of the day.
func (s *Store) RecordMastery(ctx context.Context, date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("store: invalid date %q: %w", date, err)
	}
	db, err := s.session.Open(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = engine.RunInTx(ctx, db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, execErr := tx.ExecContext(ctx, `INSERT OR IGNORE INTO stats_daily(date, learned_count) VALUES (?, 0)`, date); execErr != nil {
			return fmt.Errorf("store: init daily stat: %w", execErr)
		}
		if _, execErr := tx.ExecContext(ctx, `UPDATE stats_daily SET learned_count = learned_count + 1 WHERE date = ?`, date); execErr != nil {
			return fmt.Errorf("store: increment daily stat: %w", execErr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.session.Persist(ctx)
}

// LoadStats returns the newest 14 daily rows, descending by date, and the
// sum of their counts.
func (s *Store) LoadStats(ctx context.Context) (Stats, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return Stats{}, err
	}
	daily := []DailyStat{}
	if err := db.SelectContext(ctx, &daily, `SELECT date, learned_count FROM stats_daily ORDER BY date DESC LIMIT ?`, statsWindowDays); err != nil {
		return Stats{}, fmt.Errorf("store: load stats: %w", err)
	}
	total := 0
	for _, d := range daily {
		total += d.LearnedCount
	}
	return Stats{Daily: daily, TotalLearned: total}, nil
}

// upsertNotebook looks a notebook up by name and inserts it when absent.
// The second return reports whether a row was inserted.
func upsertNotebook(ctx context.Context, q sqlx.ExtContext, name string) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM notebooks WHERE name = ?`, name)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("store: lookup notebook: %w", err)
	}
	res, err := q.ExecContext(ctx, `INSERT INTO notebooks(name) VALUES (?)`, name)
	if err != nil {
		return 0, false, fmt.Errorf("store: insert notebook: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("store: notebook id: %w", err)
	}
	return id, true, nil
}

// upsertChapter is the chapter counterpart, keyed by (notebook_id, name).
func upsertChapter(ctx context.Context, q sqlx.ExtContext, notebookID int64, name string) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM chapters WHERE notebook_id = ? AND name = ?`, notebookID, name)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("store: lookup chapter: %w", err)
	}
	res, err := q.ExecContext(ctx, `INSERT INTO chapters(notebook_id, name) VALUES (?, ?)`, notebookID, name)
	if err != nil {
		return 0, false, fmt.Errorf("store: insert chapter: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("store: chapter id: %w", err)
	}
	return id, true, nil
}

func wordExists(ctx context.Context, q sqlx.ExtContext, notebookID, chapterID int64, headword string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		`SELECT count(*) FROM words WHERE notebook_id = ? AND chapter_id = ? AND headword = ?`,
		notebookID, chapterID, headword)
	if err != nil {
		return false, fmt.Errorf("store: check duplicate word: %w", err)
	}
	return count > 0, nil
}

func insertWord(ctx context.Context, q sqlx.ExtContext, notebookID, chapterID int64, item ImportItem) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO words(notebook_id, chapter_id, headword, phonetic, html_content, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		notebookID, chapterID, item.Headword, item.Phonetic, item.HTMLContent, item.Tags)
	if err != nil {
		return 0, fmt.Errorf("store: insert word: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: word id: %w", err)
	}
	return id, nil
}
