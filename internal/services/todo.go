package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/taskdeck/apiserver/internal/events"
	"github.com/taskdeck/apiserver/types"
)

// ErrValidation marks a rejected todo payload. Wrapped errors carry the
// field-level detail.
var ErrValidation = errors.New("validation failed")

// TodoRepository defines persistence operations for todos. All lookups and
// mutations are filtered by owner as well as id.
type TodoRepository interface {
	ListByOwner(ctx context.Context, ownerID int) ([]types.Todo, error)
	Get(ctx context.Context, id, ownerID int) (types.Todo, error)
	Create(ctx context.Context, todo types.Todo) (types.Todo, error)
	Update(ctx context.Context, todo types.Todo) (types.Todo, error)
	Delete(ctx context.Context, id, ownerID int) error
}

// TodoService encapsulates todo use-cases. The owner id is always taken from
// the authenticated caller; a client-supplied owner is never honored.
type TodoService struct {
	repo      TodoRepository
	publisher *events.Publisher
}

func NewTodoService(repo TodoRepository, publisher *events.Publisher) *TodoService {
	return &TodoService{repo: repo, publisher: publisher}
}

func (s *TodoService) List(ctx context.Context, ownerID int) ([]types.Todo, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *TodoService) Get(ctx context.Context, id, ownerID int) (types.Todo, error) {
	return s.repo.Get(ctx, id, ownerID)
}

func (s *TodoService) Create(ctx context.Context, ownerID int, title, description, status string) (types.Todo, error) {
	todo := types.Todo{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      strings.TrimSpace(status),
		OwnerID:     ownerID,
	}
	if err := validateTodo(todo); err != nil {
		return types.Todo{}, err
	}

	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}

	s.publish(ctx, events.TodoCreated, created)
	return created, nil
}

func (s *TodoService) Update(ctx context.Context, id, ownerID int, title, description, status string) (types.Todo, error) {
	todo := types.Todo{
		ID:          id,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      strings.TrimSpace(status),
		OwnerID:     ownerID,
	}
	if err := validateTodo(todo); err != nil {
		return types.Todo{}, err
	}

	updated, err := s.repo.Update(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}

	s.publish(ctx, events.TodoUpdated, updated)
	return updated, nil
}

func (s *TodoService) Delete(ctx context.Context, id, ownerID int) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.publish(ctx, events.TodoDeleted, types.Todo{ID: id, OwnerID: ownerID})
	return nil
}

// publish emits a lifecycle event. Publishing is best-effort: a broker
// failure is logged and never fails the request that triggered it.
func (s *TodoService) publish(ctx context.Context, event string, todo types.Todo) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishTodoEvent(ctx, events.TodoEvent{
		Event:   event,
		TodoID:  todo.ID,
		OwnerID: todo.OwnerID,
	})
	if err != nil {
		log.Printf("publish %s for todo %d: %v", event, todo.ID, err)
	}
}

func validateTodo(todo types.Todo) error {
	if todo.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if todo.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if todo.Status == "" {
		return fmt.Errorf("%w: status is required", ErrValidation)
	}
	if !types.ValidStatus(todo.Status) {
		return fmt.Errorf("%w: status must be one of pending, ongoing, completed", ErrValidation)
	}
	return nil
}
