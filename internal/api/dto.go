package api

import (
	"github.com/starford/ansuz/internal/store"
)

// CreateNotebookRequest is the request body for creating a notebook.
type CreateNotebookRequest struct {
	Name string `json:"name" example:"TOEFL Core" validate:"required"`
}

// CreateChapterRequest is the request body for creating a chapter inside a
// notebook.
type CreateChapterRequest struct {
	Name string `json:"name" example:"day01" validate:"required"`
}

// CreateWordRequest is the request body for adding a single word. Notebook
// and chapter are referenced by name and created on first use.
type CreateWordRequest = store.ImportItem

// MasteryRequest is the request body for recording a mastery. Date is
// optional and defaults to today.
type MasteryRequest struct {
	Date string `json:"date,omitempty" example:"2026-08-31"`
}

// IDResponse carries the id of a created or resolved entity.
type IDResponse struct {
	ID int64 `json:"id" example:"1" validate:"required"`
}

// NotebookListResponse wraps notebook listings.
type NotebookListResponse struct {
	Notebooks []store.Notebook `json:"notebooks" validate:"required"`
}

// ChapterListResponse wraps chapter listings.
type ChapterListResponse struct {
	Chapters []store.Chapter `json:"chapters" validate:"required"`
}

// WordListResponse wraps word listings.
type WordListResponse struct {
	Words []store.Word `json:"words" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}

// QueueResponse wraps one randomized study-queue draw.
type QueueResponse struct {
	Items []store.QueueItem `json:"items" validate:"required"`
	Count int               `json:"count" example:"50" validate:"required"`
}

// ImportResponse is returned after a backup restore.
type ImportResponse struct {
	Imported int `json:"imported" example:"120" validate:"required"`
}
