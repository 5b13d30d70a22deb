package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/apiserver/internal/services"
	"github.com/taskdeck/apiserver/internal/storage"
	"github.com/taskdeck/apiserver/internal/store"
	"github.com/taskdeck/apiserver/internal/token"
	"github.com/taskdeck/apiserver/types"
)

type memAttachmentRepo struct {
	attachments map[int]types.Attachment
	nextID      int
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{attachments: make(map[int]types.Attachment), nextID: 1}
}

func (m *memAttachmentRepo) ListByTodo(ctx context.Context, todoID int) ([]types.Attachment, error) {
	attachments := make([]types.Attachment, 0)
	for _, attachment := range m.attachments {
		if attachment.TodoID == todoID {
			attachments = append(attachments, attachment)
		}
	}
	return attachments, nil
}

func (m *memAttachmentRepo) Get(ctx context.Context, id, todoID int) (types.Attachment, error) {
	attachment, ok := m.attachments[id]
	if !ok || attachment.TodoID != todoID {
		return types.Attachment{}, store.ErrNotFound
	}
	return attachment, nil
}

func (m *memAttachmentRepo) Create(ctx context.Context, attachment types.Attachment) (types.Attachment, error) {
	attachment.ID = m.nextID
	m.nextID++
	m.attachments[attachment.ID] = attachment
	return attachment, nil
}

func (m *memAttachmentRepo) Delete(ctx context.Context, id, todoID int) error {
	attachment, ok := m.attachments[id]
	if !ok || attachment.TodoID != todoID {
		return store.ErrNotFound
	}
	delete(m.attachments, id)
	return nil
}

type memObjects struct {
	objects map[string][]byte
}

func (m *memObjects) EnsureBucket(ctx context.Context) error { return nil }

func (m *memObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Bucket() string { return "test-bucket" }

func newAttachmentRouter(t *testing.T) *chi.Mux {
	t.Helper()

	tokens := token.New(testSecret, time.Hour)
	userService := services.NewUserService(newMemUserRepo())
	todoRepo := newMemTodoRepo()
	todoService := services.NewTodoService(todoRepo, nil)
	attachmentService := services.NewAttachmentService(
		todoRepo,
		newMemAttachmentRepo(),
		storage.NewStorage(&memObjects{objects: make(map[string][]byte)}),
	)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		AuthRouter(r, userService, tokens)
	})
	router.Route("/api/todos", func(r chi.Router) {
		r.Use(
			RequireAuth(tokens),
			RequireRole(types.RoleUser, types.RoleAdmin),
		)
		TodoRouter(r, todoService, attachmentService)
	})
	return router
}

func uploadFile(t *testing.T, router http.Handler, path, bearer, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(formFieldFile, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAttachmentUploadDownloadOverHTTP(t *testing.T) {
	router := newAttachmentRouter(t)
	bearer := registerAndLogin(t, router, "alice", "pw1")

	rec := doJSON(t, router, http.MethodPost, "/api/todos", bearer, `{"title":"t","description":"d","status":"pending"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	base := fmt.Sprintf("/api/todos/%d/attachments", created.ID)
	rec = uploadFile(t, router, base, bearer, "notes.txt", "remember the milk")
	require.Equal(t, http.StatusCreated, rec.Code)

	var attachment types.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attachment))
	assert.Equal(t, "notes.txt", attachment.Filename)
	assert.NotContains(t, rec.Body.String(), "object_key")

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("%s/%d", base, attachment.ID), bearer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remember the milk", rec.Body.String())

	// Another user cannot reach the attachment through their own session.
	other := registerAndLogin(t, router, "bob", "pw2")
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("%s/%d", base, attachment.ID), other, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("%s/%d", base, attachment.ID), bearer, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAttachmentUploadRequiresFile(t *testing.T) {
	router := newAttachmentRouter(t)
	bearer := registerAndLogin(t, router, "alice", "pw1")

	rec := doJSON(t, router, http.MethodPost, "/api/todos", bearer, `{"title":"t","description":"d","status":"pending"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/todos/%d/attachments", created.ID), bearer, "not multipart")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
