package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/blob"
	"github.com/starford/ansuz/internal/engine"
)

func newTestStore(t *testing.T) (*Store, *blob.Memory) {
	t.Helper()
	mem := blob.NewMemory()
	sess := engine.New(mem)
	t.Cleanup(func() { _ = sess.Close() })
	return New(sess), mem
}

func strPtr(s string) *string { return &s }

func TestUpsertNotebookIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first, err := s.UpsertNotebook(ctx, "Book A")
	require.NoError(t, err)
	second, err := s.UpsertNotebook(ctx, "Book A")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	notebooks, err := s.ListNotebooks(ctx)
	require.NoError(t, err)
	require.Len(t, notebooks, 1)
	assert.Equal(t, "Book A", notebooks[0].Name)
}

func TestUpsertChapterIdempotentPerNotebook(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	nbA, err := s.UpsertNotebook(ctx, "Book A")
	require.NoError(t, err)
	nbB, err := s.UpsertNotebook(ctx, "Book B")
	require.NoError(t, err)

	chA, err := s.UpsertChapter(ctx, nbA, "day01")
	require.NoError(t, err)
	chAAgain, err := s.UpsertChapter(ctx, nbA, "day01")
	require.NoError(t, err)
	assert.Equal(t, chA, chAAgain)

	// Same chapter name in another notebook is a distinct row.
	chB, err := s.UpsertChapter(ctx, nbB, "day01")
	require.NoError(t, err)
	assert.NotEqual(t, chA, chB)

	chapters, err := s.ListChapters(ctx)
	require.NoError(t, err)
	assert.Len(t, chapters, 2)
}

func TestFilterPredicate(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		wantSQL  string
		wantArgs []any
	}{
		{"unfiltered", Filter{}, "", nil},
		{"notebook only", Filter{NotebookID: 3}, "WHERE notebook_id = ?", []any{int64(3)}},
		{"chapter only", Filter{ChapterID: 7}, "WHERE chapter_id = ?", []any{int64(7)}},
		{"chapter wins over notebook", Filter{NotebookID: 3, ChapterID: 7}, "WHERE chapter_id = ?", []any{int64(7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.predicate()
			assert.Equal(t, tt.wantSQL, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestListWordsChapterFilterIgnoresNotebook(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
		{Notebook: "Book A", Chapter: "day02", Headword: "benefit"},
		{Notebook: "Book B", Chapter: "day01", Headword: "candid"},
	})
	require.NoError(t, err)

	chapters, err := s.ListChapters(ctx)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	day02 := chapters[1].ID

	// Notebook filter pointing elsewhere must be ignored once a chapter is set.
	words, err := s.ListWords(ctx, Filter{NotebookID: 999, ChapterID: day02})
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "benefit", words[0].Headword)
	for _, w := range words {
		require.NotNil(t, w.ChapterID)
		assert.Equal(t, day02, *w.ChapterID)
	}
}

func TestListWordsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "first"},
		{Notebook: "Book A", Chapter: "day01", Headword: "second"},
		{Notebook: "Book A", Chapter: "day01", Headword: "third"},
	})
	require.NoError(t, err)

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, words, 3)
	assert.Equal(t, "third", words[0].Headword)
	assert.Equal(t, "first", words[2].Headword)
}

func TestOrphanWordsStayQueryable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	db, err := s.session.Open(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO words(headword, html_content) VALUES ('legacy', '<b>old</b>')`)
	require.NoError(t, err)

	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "legacy", words[0].Headword)
	assert.Nil(t, words[0].NotebookID)
	assert.Nil(t, words[0].ChapterID)
}

func TestSampleQueueCap(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	items := make([]ImportItem, 60)
	for i := range items {
		items[i] = ImportItem{Notebook: "Book A", Chapter: "day01", Headword: headwordN(i)}
	}
	n, err := s.BulkImport(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 60, n)

	queue, err := s.SampleQueue(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, queue, queueSampleSize)
}

func TestSampleQueueReturnsAllWhenFewerThanCap(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon"},
		{Notebook: "Book A", Chapter: "day01", Headword: "benefit"},
	})
	require.NoError(t, err)

	queue, err := s.SampleQueue(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func TestDeleteWord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	id, err := s.AddWord(ctx, ImportItem{Notebook: "Book A", Chapter: "day01", Headword: "abandon"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteWord(ctx, id))
	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestDeleteWordAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.AddWord(ctx, ImportItem{Notebook: "Book A", Chapter: "day01", Headword: "abandon"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteWord(ctx, 9999))
	words, err := s.ListWords(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, words, 1)
}

func TestRecordMasteryAccumulates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordMastery(ctx, "2024-01-01"))
	}

	stats, err := s.LoadStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Daily, 1)
	assert.Equal(t, DailyStat{Date: "2024-01-01", LearnedCount: 3}, stats.Daily[0])
	assert.Equal(t, 3, stats.TotalLearned)
}

func TestRecordMasteryRejectsBadDate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.Error(t, s.RecordMastery(ctx, "January 1st"))
	stats, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.Daily)
}

func TestLoadStatsWindow(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// 16 days of history; only the newest 14 are reported.
	dates := []string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04",
		"2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08",
		"2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12",
		"2024-01-13", "2024-01-14", "2024-01-15", "2024-01-16",
	}
	for _, d := range dates {
		require.NoError(t, s.RecordMastery(ctx, d))
	}

	stats, err := s.LoadStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Daily, statsWindowDays)
	assert.Equal(t, "2024-01-16", stats.Daily[0].Date)
	assert.Equal(t, "2024-01-03", stats.Daily[len(stats.Daily)-1].Date)
	// TotalLearned sums the window, not lifetime.
	assert.Equal(t, statsWindowDays, stats.TotalLearned)
}

func TestScenarioFromEmptyStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	nb, err := s.UpsertNotebook(ctx, "Book A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), nb)

	ch, err := s.UpsertChapter(ctx, nb, "day01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ch)

	batch := []ImportItem{{Notebook: "Book A", Chapter: "day01", Headword: "abandon", HTMLContent: "<b>버리다</b>"}}
	n, err := s.BulkImport(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	words, err := s.ListWords(ctx, Filter{NotebookID: nb})
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "abandon", words[0].Headword)

	// Re-running the identical batch inserts nothing.
	n, err = s.BulkImport(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddWordDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	item := ImportItem{Notebook: "Book A", Chapter: "day01", Headword: "abandon"}
	_, err := s.AddWord(ctx, item)
	require.NoError(t, err)
	_, err = s.AddWord(ctx, item)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAddWordValidatesHeadword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.AddWord(ctx, ImportItem{Notebook: "Book A", Chapter: "day01", Headword: "   "})
	require.Error(t, err)
}

func TestPersistedAcrossSessions(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	sess := engine.New(mem)
	s := New(sess)

	_, err := s.BulkImport(ctx, []ImportItem{
		{Notebook: "Book A", Chapter: "day01", Headword: "abandon", Phonetic: strPtr("əˈbændən")},
	})
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	// A cold process over the same blob slot sees the same rows.
	sess2 := engine.New(mem)
	t.Cleanup(func() { _ = sess2.Close() })
	s2 := New(sess2)
	words, err := s2.ListWords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "abandon", words[0].Headword)
	require.NotNil(t, words[0].Phonetic)
	assert.Equal(t, "əˈbændən", *words[0].Phonetic)
}

func headwordN(i int) string {
	return "word-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func TestUpsertChapterRequiresExistingNotebook(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.UpsertChapter(context.Background(), 999, "day01")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
