package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/apiserver/internal/services"
	"github.com/taskdeck/apiserver/internal/store"
	"github.com/taskdeck/apiserver/internal/token"
	"github.com/taskdeck/apiserver/types"
)

const testSecret = "handler-test-secret"

type memUserRepo struct {
	users  map[string]types.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]types.User), nextID: 1}
}

func (m *memUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	user, ok := m.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := m.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return user, nil
}

type memTodoRepo struct {
	todos  map[int]types.Todo
	nextID int
}

func newMemTodoRepo() *memTodoRepo {
	return &memTodoRepo{todos: make(map[int]types.Todo), nextID: 1}
}

func (m *memTodoRepo) ListByOwner(ctx context.Context, ownerID int) ([]types.Todo, error) {
	todos := make([]types.Todo, 0)
	for _, todo := range m.todos {
		if todo.OwnerID == ownerID {
			todos = append(todos, todo)
		}
	}
	return todos, nil
}

func (m *memTodoRepo) Get(ctx context.Context, id, ownerID int) (types.Todo, error) {
	todo, ok := m.todos[id]
	if !ok || todo.OwnerID != ownerID {
		return types.Todo{}, store.ErrNotFound
	}
	return todo, nil
}

func (m *memTodoRepo) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	todo.ID = m.nextID
	m.nextID++
	m.todos[todo.ID] = todo
	return todo, nil
}

func (m *memTodoRepo) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	existing, ok := m.todos[todo.ID]
	if !ok || existing.OwnerID != todo.OwnerID {
		return types.Todo{}, store.ErrNotFound
	}
	m.todos[todo.ID] = todo
	return todo, nil
}

func (m *memTodoRepo) Delete(ctx context.Context, id, ownerID int) error {
	todo, ok := m.todos[id]
	if !ok || todo.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

// newTestRouter composes the API the way internal/server does, backed by
// in-memory repositories.
func newTestRouter(t *testing.T) (*chi.Mux, *token.Service) {
	t.Helper()

	tokens := token.New(testSecret, time.Hour)
	userService := services.NewUserService(newMemUserRepo())
	todoService := services.NewTodoService(newMemTodoRepo(), nil)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		AuthRouter(r, userService, tokens)
	})
	router.Route("/api/todos", func(r chi.Router) {
		r.Use(
			RequireAuth(tokens),
			RequireRole(types.RoleUser, types.RoleAdmin),
		)
		TodoRouter(r, todoService, nil)
	})
	return router, tokens
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/users/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterDuplicate(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", `{"username":"alice","password":"pw1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(t, router, http.MethodPost, "/api/users/register", "", `{"username":"alice","password":"pw2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{`{}`, `{"username":"alice"}`, `{"password":"pw"}`, `{"username":"  ","password":"pw"}`} {
		rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/users/register", "", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/users/login", "", `{"username":"alice","password":"nope"}`)
	unknownUser := doJSON(t, router, http.MethodPost, "/api/users/login", "", `{"username":"mallory","password":"pw1"}`)

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	router, tokens := newTestRouter(t)

	bearer := registerAndLogin(t, router, "alice", "pw1")

	claims, err := tokens.Verify(bearer)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, types.RoleUser, claims.Role)
}

func TestRequireAuthMissingToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
}

func TestRequireAuthBadToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/todos", "garbage", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
}

func TestRequireAuthExpiredToken(t *testing.T) {
	router, _ := newTestRouter(t)

	expired, err := token.New(testSecret, -time.Minute).Issue(1, types.RoleUser)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/todos", expired, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
}

func TestRequireRoleRejectsUnknownRole(t *testing.T) {
	router, tokens := newTestRouter(t)

	outsider, err := tokens.Issue(1, "ghost")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/todos", outsider, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Forbidden")
}

func TestMe(t *testing.T) {
	router, _ := newTestRouter(t)

	bearer := registerAndLogin(t, router, "alice", "pw1")

	rec := doJSON(t, router, http.MethodGet, "/api/users/me", bearer, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var user types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
}
