package store

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Notebook is a top-level grouping of vocabulary (a book or source).
type Notebook struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Chapter is a subdivision within a notebook, e.g. a study day.
type Chapter struct {
	ID         int64  `db:"id" json:"id"`
	NotebookID int64  `db:"notebook_id" json:"notebook_id"`
	Name       string `db:"name" json:"name"`
}

// Word is one vocabulary entry. Notebook and chapter associations are
// optional: orphaned rows stay queryable.
type Word struct {
	ID          int64   `db:"id" json:"id"`
	NotebookID  *int64  `db:"notebook_id" json:"notebook_id"`
	ChapterID   *int64  `db:"chapter_id" json:"chapter_id"`
	Headword    string  `db:"headword" json:"headword"`
	Phonetic    *string `db:"phonetic" json:"phonetic"`
	HTMLContent string  `db:"html_content" json:"html_content"`
	Tags        *string `db:"tags" json:"tags"`
}

// QueueItem is the slim word shape handed to the study queue.
type QueueItem struct {
	ID          int64  `db:"id" json:"id"`
	Headword    string `db:"headword" json:"headword"`
	HTMLContent string `db:"html_content" json:"html_content"`
}

// DailyStat is one calendar day's learned-word count.
type DailyStat struct {
	Date         string `db:"date" json:"date"`
	LearnedCount int    `db:"learned_count" json:"learned_count"`
}

// Stats is the recent stats window. TotalLearned sums the returned window
// only; it is a 14-day approximation, not a lifetime total.
type Stats struct {
	Daily        []DailyStat `json:"daily"`
	TotalLearned int         `json:"total_learned"`
}

// ImportItem is the sole input contract for word creation, shared by the
// JSON restore path and external extraction collaborators.
type ImportItem struct {
	Notebook    string  `json:"notebook"`
	Chapter     string  `json:"chapter"`
	Headword    string  `json:"headword"`
	Phonetic    *string `json:"phonetic,omitempty"`
	HTMLContent string  `json:"html_content,omitempty"`
	Tags        *string `json:"tags,omitempty"`
}

// Validate checks the fields required to insert a single word.
func (i ImportItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Notebook, validation.Required),
		validation.Field(&i.Chapter, validation.Required),
		validation.Field(&i.Headword, validation.Required, validation.By(notBlank)),
	)
}

func notBlank(value any) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

// Filter selects words by chapter or notebook. Chapter selection is more
// specific and alone determines the result set when both are set.
type Filter struct {
	NotebookID int64
	ChapterID  int64
}

// predicate compiles the filter into a WHERE clause and its arguments.
func (f Filter) predicate() (string, []any) {
	switch {
	case f.ChapterID != 0:
		return "WHERE chapter_id = ?", []any{f.ChapterID}
	case f.NotebookID != 0:
		return "WHERE notebook_id = ?", []any{f.NotebookID}
	default:
		return "", nil
	}
}
