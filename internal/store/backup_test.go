package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/apperr"
)

func TestBulkImportSkipsBlankHeadwords(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	n, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
		{Notebook: "Book A", Chapter: "day01", Headword: ""},
		{Notebook: "Book A", Chapter: "day01", Headword: "   "},
		{Notebook: "Book A", Chapter: "day01", Headword: "benefit"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, words, 2)
}

func TestBulkImportDedupAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	batch := []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
		{Notebook: "Book A", Chapter: "day01", Headword: "benefit"},
	}
	n, err := s.BulkImport(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Overlap plus one genuinely new item: only the new one counts.
	n, err = s.BulkImport(ctx, append(batch, ImportItem{Notebook: "Book A", Chapter: "day01", Headword: "candid"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, words, 3)
}

func TestBulkImportSameHeadwordDifferentChapters(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	n, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
		{Notebook: "Book A", Chapter: "day02", Headword: "abandon"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "same headword in different chapters is not a duplicate")
}

func TestBulkImportChapterBelongsToNotebook(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
		{Notebook: "Book B", Chapter: "day01", Headword: "benefit"},
	})
	require.NoError(t, err)

	chapters, err := s.ListChapters(ctx)
	require.NoError(t, err)
	byID := make(map[int64]Chapter, len(chapters))
	for _, c := range chapters {
		byID[c.ID] = c
	}

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, words, 2)
	for _, w := range words {
		require.NotNil(t, w.NotebookID)
		require.NotNil(t, w.ChapterID)
		assert.Equal(t, *w.NotebookID, byID[*w.ChapterID].NotebookID,
			"word %q: chapter must belong to the word's notebook", w.Headword)
	}
}

func TestBulkImportPersistFailureReported(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	mem.FailPuts = assert.AnError
	n, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
	})
	require.ErrorIs(t, err, apperr.ErrPersist)
	assert.Equal(t, 1, n, "in-memory insert happened even though the write-through failed")

	// The engine state is ahead of the persisted image, by contract.
	words, listErr := s.ListWords(ctx, Filter{})
	require.NoError(t, listErr)
	assert.Len(t, words, 1)
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon", Phonetic: strPtr("əˈbændən"), HTMLContent: "<b>버리다</b>", Tags: strPtr("basic")},
		{Notebook: "Book B", Chapter: "day02", Headword: "benefit", HTMLContent: "<b>이익</b>"},
	})
	require.NoError(t, err)

	data, err := s.ExportJSON(ctx)
	require.NoError(t, err)

	// The backup is a JSON array of full word rows.
	var exported []Word
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 2)

	// Feeding the export back through the restore path reproduces every
	// content field under the fixed Imported/default regrouping.
	restored, _ := newTestStore(t)
	n, err := restored.ImportJSON(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	words, err := restored.ListWords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, words, 2)

	byHeadword := make(map[string]Word)
	for _, w := range words {
		byHeadword[w.Headword] = w
	}
	abandon := byHeadword["abandon"]
	require.NotNil(t, abandon.Phonetic)
	assert.Equal(t, "əˈbændən", *abandon.Phonetic)
	assert.Equal(t, "<b>버리다</b>", abandon.HTMLContent)
	require.NotNil(t, abandon.Tags)
	assert.Equal(t, "basic", *abandon.Tags)
	assert.Equal(t, "<b>이익</b>", byHeadword["benefit"].HTMLContent)

	notebooks, err := restored.ListNotebooks(ctx)
	require.NoError(t, err)
	require.Len(t, notebooks, 1)
	assert.Equal(t, ImportedNotebookName, notebooks[0].Name)
}

func TestImportJSONMalformed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	n, err := s.ImportJSON(ctx, []byte(`{"not": "an array"`))
	require.ErrorIs(t, err, ErrMalformedBackup)
	assert.Zero(t, n)

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, words, "nothing may be imported from an unparsable file")
}

func TestRestoreImageRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.AddWord(ctx, ImportItem{Notebook: "Book A", Chapter: "day01", Headword: "abandon"})
	require.NoError(t, err)

	err = s.RestoreImage(ctx, []byte("whatever"), false)
	require.ErrorIs(t, err, apperr.ErrConfirmationRequired)

	// Skipped confirmation leaves the database untouched.
	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, words, 1)
}

func TestRestoreImageReplacesDataset(t *testing.T) {
	ctx := context.Background()

	donor, _ := newTestStore(t)
	_, err := donor.BulkImport(ctx, []ImportItem{
		{Notebook: "Donor", Chapter: "day01", Headword: "candid"},
	})
	require.NoError(t, err)
	image, err := donor.ExportImage(ctx)
	require.NoError(t, err)

	s, _ := newTestStore(t)
	_, err = s.AddWord(ctx, ImportItem{Notebook: "Victim", Chapter: "day01", Headword: "abandon"})
	require.NoError(t, err)

	require.NoError(t, s.RestoreImage(ctx, image, true))

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "candid", words[0].Headword)

	notebooks, err := s.ListNotebooks(ctx)
	require.NoError(t, err)
	require.Len(t, notebooks, 1)
	assert.Equal(t, "Donor", notebooks[0].Name)
}
