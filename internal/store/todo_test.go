package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/taskdeck/apiserver/types"
)

func TestTodoRepositoryListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTodoRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "title", "description", "status", "owner_id", "created_at", "updated_at"}).
		AddRow(1, "t1", "d1", "pending", 9, now, now).
		AddRow(2, "t2", "d2", "completed", 9, now, now)
	mock.ExpectQuery("SELECT id, title, description, status, owner_id, created_at, updated_at\\s+FROM todos\\s+WHERE owner_id = \\$1").
		WithArgs(9).
		WillReturnRows(rows)

	todos, err := repo.ListByOwner(context.Background(), 9)
	if err != nil {
		t.Fatalf("ListByOwner() error: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("len(todos) = %d, want 2", len(todos))
	}
	if todos[0].OwnerID != 9 || todos[1].OwnerID != 9 {
		t.Fatalf("unexpected owners: %+v", todos)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestTodoRepositoryListByOwnerEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTodoRepository(db)

	mock.ExpectQuery("FROM todos\\s+WHERE owner_id = \\$1").
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "owner_id", "created_at", "updated_at"}))

	todos, err := repo.ListByOwner(context.Background(), 9)
	if err != nil {
		t.Fatalf("ListByOwner() error: %v", err)
	}
	if todos == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(todos) != 0 {
		t.Fatalf("len(todos) = %d, want 0", len(todos))
	}
}

func TestTodoRepositoryGetFiltersByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTodoRepository(db)

	// The row exists under another owner; the scoped query sees nothing.
	mock.ExpectQuery("FROM todos\\s+WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(5, 2).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), 5, 2); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTodoRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTodoRepository(db)

	mock.ExpectQuery("INSERT INTO todos").
		WithArgs("title", "desc", "pending", 9, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	todo, err := repo.Create(context.Background(), types.Todo{
		Title:       "title",
		Description: "desc",
		Status:      "pending",
		OwnerID:     9,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if todo.ID != 11 {
		t.Fatalf("ID = %d, want 11", todo.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestTodoRepositoryUpdateOtherOwnerNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTodoRepository(db)

	mock.ExpectExec("UPDATE todos").
		WithArgs("title", "desc", "ongoing", sqlmock.AnyArg(), 5, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = repo.Update(context.Background(), types.Todo{
		ID:          5,
		Title:       "title",
		Description: "desc",
		Status:      "ongoing",
		OwnerID:     2,
	})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTodoRepositoryDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTodoRepository(db)

	mock.ExpectExec("DELETE FROM todos WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(5, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), 5, 9); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	mock.ExpectExec("DELETE FROM todos WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(5, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 5, 2); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
