package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/taskdeck/apiserver/internal/services"
	"github.com/taskdeck/apiserver/internal/store"
	"github.com/taskdeck/apiserver/internal/token"
)

const (
	maxMultipartMemory = 8 << 20
	maxAttachmentBytes = 32 << 20
	formFieldFile      = "file"
)

// TodoHandler provides HTTP handlers for todos and their attachments.
type TodoHandler struct {
	todoService       *services.TodoService
	attachmentService *services.AttachmentService
}

// NewTodoHandler constructs a handler with the provided services. The
// attachment service may be nil when no object storage is configured.
func NewTodoHandler(todoService *services.TodoService, attachmentService *services.AttachmentService) *TodoHandler {
	return &TodoHandler{
		todoService:       todoService,
		attachmentService: attachmentService,
	}
}

// TodoRouter registers todo routes on the given router. Authentication and
// role checks are mounted by the caller; every handler reads the owner from
// the verified claims.
func TodoRouter(r chi.Router, todoService *services.TodoService, attachmentService *services.AttachmentService) {
	handler := NewTodoHandler(todoService, attachmentService)

	r.Get("/", handler.ListTodos)
	r.Post("/", handler.CreateTodo)
	r.Route("/{todoID}", func(r chi.Router) {
		r.Put("/", handler.UpdateTodo)
		r.Delete("/", handler.DeleteTodo)
		r.Route("/attachments", func(r chi.Router) {
			r.Get("/", handler.ListAttachments)
			r.Post("/", handler.UploadAttachment)
			r.Get("/{attachmentID}", handler.DownloadAttachment)
			r.Delete("/{attachmentID}", handler.DeleteAttachment)
		})
	})
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	todos, err := h.todoService.List(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	var req TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.todoService.Create(r.Context(), claims.UserID, req.Title, req.Description, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create todo")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	id, err := parseID(r, "todoID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	var req TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.todoService.Update(r.Context(), id, claims.UserID, req.Title, req.Description, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Todo not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update todo")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	id, err := parseID(r, "todoID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	if err := h.todoService.Delete(r.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete todo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	claims, todoID, ok := h.attachmentRequest(w, r)
	if !ok {
		return
	}

	attachments, err := h.attachmentService.List(r.Context(), todoID, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list attachments")
		return
	}

	writeJSON(w, http.StatusOK, attachments)
}

func (h *TodoHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims, todoID, ok := h.attachmentRequest(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAttachmentBytes {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := h.attachmentService.Upload(r.Context(), todoID, claims.UserID, header.Filename, contentType, header.Size, file)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}

	writeJSON(w, http.StatusCreated, attachment)
}

func (h *TodoHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	claims, todoID, ok := h.attachmentRequest(w, r)
	if !ok {
		return
	}

	attachmentID, err := parseID(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	attachment, reader, err := h.attachmentService.Open(r.Context(), attachmentID, todoID, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Attachment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to open attachment")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func (h *TodoHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	claims, todoID, ok := h.attachmentRequest(w, r)
	if !ok {
		return
	}

	attachmentID, err := parseID(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	if err := h.attachmentService.Delete(r.Context(), attachmentID, todoID, claims.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Attachment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete attachment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// attachmentRequest validates the common preconditions of attachment
// handlers: verified claims, configured storage, and a well-formed todo id.
func (h *TodoHandler) attachmentRequest(w http.ResponseWriter, r *http.Request) (claims token.Claims, todoID int, ok bool) {
	c, present := claimsFromContext(r.Context())
	if !present {
		writeError(w, http.StatusUnauthorized, "Access denied")
		return token.Claims{}, 0, false
	}

	if h.attachmentService == nil {
		writeError(w, http.StatusInternalServerError, "attachments not configured")
		return token.Claims{}, 0, false
	}

	id, err := parseID(r, "todoID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return token.Claims{}, 0, false
	}

	return c, id, true
}

// TodoRequest is the JSON payload for creating or updating a todo.
type TodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func parseID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
