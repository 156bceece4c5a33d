package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/engine"
)

// JSON restores do not preserve the original grouping; every restored word
// lands under this notebook and chapter.
const (
	ImportedNotebookName = "Imported"
	ImportedChapterName  = "default"
)

// ErrMalformedBackup marks a backup file that could not be parsed at all.
// Nothing is imported in that case.
var ErrMalformedBackup = errors.New("store: malformed backup JSON")

// BulkImport inserts the items as one atomic batch. Items with a blank
// headword are skipped, as are items whose (notebook, chapter, headword)
// row already exists, so an import is safe to re-run. Any other failure
// rolls the whole batch back. Returns the count of rows actually inserted.
func (s *Store) BulkImport(ctx context.Context, items []ImportItem) (int, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	err = engine.RunInTx(ctx, db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, item := range items {
			if strings.TrimSpace(item.Headword) == "" {
				continue
			}
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
				continue
			}
			if _, insErr := insertWord(ctx, tx, notebookID, chapterID, item); insErr != nil {
				return insErr
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	// One write-through for the whole batch, upserts included.
	if err := s.session.Persist(ctx); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// backupWord is the word shape in a vocab-backup.json file. Extra fields
// such as the original ids are accepted and ignored on restore.
type backupWord struct {
	Headword    string  `json:"headword"`
	Phonetic    *string `json:"phonetic"`
	HTMLContent string  `json:"html_content"`
	Tags        *string `json:"tags"`
}

// ExportJSON serializes all word rows, all columns, as a pretty-printed
// JSON array.
func (s *Store) ExportJSON(ctx context.Context) ([]byte, error) {
	db, err := s.session.Open(ctx)
	if err != nil {
		return nil, err
	}
	words := []Word{}
	if err := db.SelectContext(ctx, &words,
		`SELECT id, notebook_id, chapter_id, headword, phonetic, html_content, tags FROM words ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("store: export words: %w", err)
	}
	data, err := json.MarshalIndent(words, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: encode backup: %w", err)
	}
	return data, nil
}

// ImportJSON parses a JSON array of word records and imports the content
// fields through BulkImport, regrouped under "Imported"/"default". A file
// that fails to parse aborts before any row is touched.
func (s *Store) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var records []backupWord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	items := make([]ImportItem, 0, len(records))
	for _, r := range records {
		items = append(items, ImportItem{
			Notebook:    ImportedNotebookName,
			Chapter:     ImportedChapterName,
			Headword:    r.Headword,
			Phonetic:    r.Phonetic,
			HTMLContent: r.HTMLContent,
			Tags:        r.Tags,
		})
	}
	return s.BulkImport(ctx, items)
}

// ExportImage returns the raw serialized engine image: a complete binary
// snapshot for whole-database transfer.
func (s *Store) ExportImage(ctx context.Context) ([]byte, error) {
	return s.session.Export(ctx)
}

// RestoreImage replaces the entire persisted image and cold-reloads the
// engine from it, discarding all prior rows. Without confirm it returns
// apperr.ErrConfirmationRequired and touches nothing.
func (s *Store) RestoreImage(ctx context.Context, image []byte, confirm bool) error {
	if !confirm {
		return apperr.ErrConfirmationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Restore(ctx, image)
}
