// AngelaMos | 2026
// handler.go

package content

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/middleware"
)

const maxNoteUploadBytes = 50 * 1024 * 1024

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/folders", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListFolders)
		r.Get("/{folderID}", h.GetFolder)
		r.Get("/{folderID}/notes", h.ListNotes)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/folders", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.CreateFolder)
		r.Post("/{folderID}/notes", h.UploadNote)
	})
}

func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	params := ListFoldersParams{
		Department: r.URL.Query().Get("department"),
		Semester:   r.URL.Query().Get("semester"),
		Subject:    r.URL.Query().Get("subject"),
	}

	folders, err := h.service.ListFolders(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{"folders": ToFolderResponseList(folders)})
}

func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")

	folder, err := h.service.GetFolder(r.Context(), folderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "folder")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToFolderResponse(folder))
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	userID := middleware.GetUserID(r.Context())

	notes, err := h.service.ListNotes(
		r.Context(),
		userID,
		folderID,
		middleware.IsAdmin(r.Context()),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "folder")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, map[string]any{"notes": notes})
}

func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	folder, err := h.service.CreateFolder(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("a folder with this name"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToFolderResponse(folder))
}

func (h *Handler) UploadNote(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")

	if err := r.ParseMultipartForm(maxNoteUploadBytes); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	req := UploadNoteRequest{Title: r.FormValue("title")}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "note document is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only temp file

	note, err := h.service.UploadNote(
		r.Context(),
		folderID,
		req,
		file,
		header.Filename,
		header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "folder")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.Created(w, note)
}
