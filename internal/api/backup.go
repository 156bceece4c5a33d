package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
)

const maxBackupBytes = 50 << 20 // 50 MB

// BackupHandler serves and accepts whole-dataset backups, both as the
// portable JSON word list and as the raw binary database image.
type BackupHandler struct {
	store  *store.Store
	broker *sse.Broker
}

// NewBackupHandler creates a handler over the store. broker may be nil.
func NewBackupHandler(st *store.Store, broker *sse.Broker) *BackupHandler {
	return &BackupHandler{store: st, broker: broker}
}

// ExportJSON handles GET /api/backup/json.
//
//	@Summary		Download all words as a JSON backup file
//	@Tags			backup
//	@Produce		json
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/backup/json [get]
func (h *BackupHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.ExportJSON(r.Context())
	if err != nil {
		slog.Error("export json failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vocab-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportJSON handles POST /api/backup/json.
//
//	@Summary		Restore words from a JSON backup (additive, dedup-safe)
//	@Tags			backup
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	ImportResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backup/json [post]
func (h *BackupHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	imported, err := h.store.ImportJSON(r.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrMalformedBackup):
			writeJSON(w, http.StatusBadRequest, errorBody("malformed backup JSON"))
		case errors.Is(err, apperr.ErrPersist):
			persistFailed(w, "import backup", err)
		default:
			slog.Error("import backup failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if h.broker != nil {
		h.broker.PublishImport(imported)
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: imported})
}

// ExportImage handles GET /api/backup/db.
//
//	@Summary		Download the raw database image
//	@Tags			backup
//	@Produce		octet-stream
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/backup/db [get]
func (h *BackupHandler) ExportImage(w http.ResponseWriter, r *http.Request) {
	image, err := h.store.ExportImage(r.Context())
	if err != nil {
		slog.Error("export image failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	filename := fmt.Sprintf("vocab-database-%s.db", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("ETag", `"`+checksum.Sum(image)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

// RestoreImage handles POST /api/backup/db.
//
//	@Summary		Replace the entire database from a raw image
//	@Description	Destructive: discards all current rows. Requires ?confirm=true.
//	@Tags			backup
//	@Accept			octet-stream
//	@Success		204	"Database replaced"
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backup/db [post]
func (h *BackupHandler) RestoreImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)
	image, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(image) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("image body is required"))
		return
	}
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.store.RestoreImage(r.Context(), image, confirm); err != nil {
		switch {
		case errors.Is(err, apperr.ErrConfirmationRequired):
			writeJSON(w, http.StatusConflict, errorBody("restore replaces all data; repeat with ?confirm=true"))
		case errors.Is(err, apperr.ErrPersist):
			persistFailed(w, "restore image", err)
		default:
			slog.Error("restore image failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
