package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	store  *store.Store
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil, in which case no
// events are published.
func NewHandler(st *store.Store, broker *sse.Broker) *Handler {
	return &Handler{store: st, broker: broker}
}

// wordFilter builds a store filter from notebook_id / chapter_id query
// parameters. Unparsable values behave like an absent parameter.
func wordFilter(r *http.Request) store.Filter {
	q := r.URL.Query()
	notebookID, _ := strconv.ParseInt(q.Get("notebook_id"), 10, 64)
	chapterID, _ := strconv.ParseInt(q.Get("chapter_id"), 10, 64)
	return store.Filter{NotebookID: notebookID, ChapterID: chapterID}
}

// persistFailed reports write-through failures. The mutation has been
// applied to the in-memory database; only the durable image is stale.
func persistFailed(w http.ResponseWriter, op string, err error) {
	slog.Error(op+" write-through failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInsufficientStorage, errorBody("change applied in memory but could not be persisted"))
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary		List all notebooks
//	@Tags			notebooks
//	@Produce		json
//	@Success		200	{object}	NotebookListResponse
//	@Security		BearerAuth
//	@Router			/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	notebooks, err := h.store.ListNotebooks(r.Context())
	if err != nil {
		slog.Error("list notebooks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notebooks == nil {
		notebooks = []store.Notebook{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notebooks": notebooks})
}

// CreateNotebook handles POST /api/notebooks.
//
//	@Summary		Create a notebook (idempotent by name)
//	@Tags			notebooks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNotebookRequest	true	"Notebook to create"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks [post]
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	id, err := h.store.UpsertNotebook(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrPersist) {
			persistFailed(w, "create notebook", err)
			return
		}
		slog.Error("create notebook failed", slog.String("name", req.Name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// ListChapters handles GET /api/chapters.
//
//	@Summary		List all chapters across notebooks
//	@Tags			chapters
//	@Produce		json
//	@Success		200	{object}	ChapterListResponse
//	@Security		BearerAuth
//	@Router			/chapters [get]
func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.store.ListChapters(r.Context())
	if err != nil {
		slog.Error("list chapters failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if chapters == nil {
		chapters = []store.Chapter{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": chapters})
}

// CreateChapter handles POST /api/notebooks/{id}/chapters.
//
//	@Summary		Create a chapter in a notebook (idempotent by name)
//	@Tags			chapters
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Notebook id"
//	@Param			body	body		CreateChapterRequest	true	"Chapter to create"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks/{id}/chapters [post]
func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	notebookID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid notebook id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	id, err := h.store.UpsertChapter(r.Context(), notebookID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("notebook not found"))
		case errors.Is(err, apperr.ErrPersist):
			persistFailed(w, "create chapter", err)
		default:
			slog.Error("create chapter failed", slog.String("name", req.Name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// ListWords handles GET /api/words.
//
//	@Summary		List words, most recent first, with optional filtering
//	@Tags			words
//	@Produce		json
//	@Param			notebook_id	query		int	false	"Filter by notebook"
//	@Param			chapter_id	query		int	false	"Filter by chapter (takes precedence)"
//	@Success		200			{object}	WordListResponse
//	@Security		BearerAuth
//	@Router			/words [get]
func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	words, err := h.store.ListWords(r.Context(), wordFilter(r))
	if err != nil {
		slog.Error("list words failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if words == nil {
		words = []store.Word{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"words": words,
		"total": len(words),
	})
}

// CreateWord handles POST /api/words.
//
//	@Summary		Add a word, creating its notebook and chapter on first use
//	@Tags			words
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateWordRequest	true	"Word to add"
//	@Success		201		{object}	IDResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/words [post]
func (h *Handler) CreateWord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	id, err := h.store.AddWord(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("word already exists in this chapter"))
		case errors.Is(err, apperr.ErrPersist):
			persistFailed(w, "create word", err)
		default:
			slog.Error("create word failed", slog.String("headword", req.Headword), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if h.broker != nil {
		h.broker.PublishWordEvent("created", id)
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// DeleteWord handles DELETE /api/words/{id}.
//
//	@Summary		Delete a word
//	@Tags			words
//	@Param			id	path	int	true	"Word id"
//	@Success		204	"Word deleted (or was already absent)"
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/words/{id} [delete]
func (h *Handler) DeleteWord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid word id"))
		return
	}
	if err := h.store.DeleteWord(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrPersist) {
			persistFailed(w, "delete word", err)
			return
		}
		slog.Error("delete word failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		h.broker.PublishWordEvent("deleted", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Queue handles GET /api/queue.
//
//	@Summary		Draw a fresh randomized study queue (up to 50 words)
//	@Tags			study
//	@Produce		json
//	@Param			notebook_id	query		int	false	"Filter by notebook"
//	@Param			chapter_id	query		int	false	"Filter by chapter (takes precedence)"
//	@Success		200			{object}	QueueResponse
//	@Security		BearerAuth
//	@Router			/queue [get]
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.SampleQueue(r.Context(), wordFilter(r))
	if err != nil {
		slog.Error("sample queue failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []store.QueueItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// RecordMastery handles POST /api/mastery.
//
//	@Summary		Record one mastered word for a day (default today)
//	@Tags			study
//	@Accept			json
//	@Success		204	"Mastery recorded"
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mastery [post]
func (h *Handler) RecordMastery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MasteryRequest
	// An empty body means "today"; anything else must be valid JSON.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if err := h.store.RecordMastery(r.Context(), date); err != nil {
		if errors.Is(err, apperr.ErrPersist) {
			persistFailed(w, "record mastery", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
		return
	}
	if h.broker != nil {
		h.broker.PublishMastery()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats.
//
//	@Summary		Recent daily mastery counts (14-day window)
//	@Tags			study
//	@Produce		json
//	@Success		200	{object}	store.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.LoadStats(r.Context())
	if err != nil {
		slog.Error("load stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
