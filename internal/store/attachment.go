package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/taskdeck/apiserver/types"
)

// AttachmentRepository handles persistence for todo attachment metadata.
// Ownership is enforced one level up: callers must resolve the todo through
// TodoRepository.Get (which filters by owner) before touching attachments.
type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) ListByTodo(ctx context.Context, todoID int) ([]types.Attachment, error) {
	const query = `
		SELECT id, todo_id, filename, content_type, size_bytes, object_key, created_at
		FROM todo_attachments
		WHERE todo_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, todoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]types.Attachment, 0)
	for rows.Next() {
		var attachment types.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TodoID,
			&attachment.Filename,
			&attachment.ContentType,
			&attachment.SizeBytes,
			&attachment.ObjectKey,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *AttachmentRepository) Get(ctx context.Context, id, todoID int) (types.Attachment, error) {
	const query = `
		SELECT id, todo_id, filename, content_type, size_bytes, object_key, created_at
		FROM todo_attachments
		WHERE id = $1 AND todo_id = $2`
	var attachment types.Attachment
	err := r.db.QueryRowContext(ctx, query, id, todoID).Scan(
		&attachment.ID,
		&attachment.TodoID,
		&attachment.Filename,
		&attachment.ContentType,
		&attachment.SizeBytes,
		&attachment.ObjectKey,
		&attachment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Attachment{}, ErrNotFound
		}
		return types.Attachment{}, err
	}
	return attachment, nil
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment types.Attachment) (types.Attachment, error) {
	attachment.CreatedAt = time.Now()

	const query = `
		INSERT INTO todo_attachments (todo_id, filename, content_type, size_bytes, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		attachment.TodoID,
		attachment.Filename,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.ObjectKey,
		attachment.CreatedAt,
	).Scan(&attachment.ID); err != nil {
		return types.Attachment{}, err
	}
	return attachment, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id, todoID int) error {
	const query = `DELETE FROM todo_attachments WHERE id = $1 AND todo_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, todoID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
