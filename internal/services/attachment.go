package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"

	"github.com/taskdeck/apiserver/internal/storage"
	"github.com/taskdeck/apiserver/types"
)

// AttachmentRepository defines persistence operations for attachment metadata.
type AttachmentRepository interface {
	ListByTodo(ctx context.Context, todoID int) ([]types.Attachment, error)
	Get(ctx context.Context, id, todoID int) (types.Attachment, error)
	Create(ctx context.Context, attachment types.Attachment) (types.Attachment, error)
	Delete(ctx context.Context, id, todoID int) error
}

// AttachmentService manages file attachments on todos. Every operation
// resolves the todo through the owner-scoped repository first, so an
// attachment on another user's todo is indistinguishable from a missing one.
type AttachmentService struct {
	todos       TodoRepository
	attachments AttachmentRepository
	storage     *storage.Storage
}

func NewAttachmentService(todos TodoRepository, attachments AttachmentRepository, store *storage.Storage) *AttachmentService {
	return &AttachmentService{
		todos:       todos,
		attachments: attachments,
		storage:     store,
	}
}

func (s *AttachmentService) List(ctx context.Context, todoID, ownerID int) ([]types.Attachment, error) {
	if _, err := s.todos.Get(ctx, todoID, ownerID); err != nil {
		return nil, err
	}
	return s.attachments.ListByTodo(ctx, todoID)
}

// Upload stores the object and persists its metadata. On a metadata failure
// the uploaded object is removed again, best-effort.
func (s *AttachmentService) Upload(ctx context.Context, todoID, ownerID int, filename, contentType string, size int64, r io.Reader) (types.Attachment, error) {
	if _, err := s.todos.Get(ctx, todoID, ownerID); err != nil {
		return types.Attachment{}, err
	}

	key := storage.AttachmentKey(ownerID, todoID, newObjectToken())
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.Attachment{}, fmt.Errorf("store attachment object: %w", err)
	}

	attachment, err := s.attachments.Create(ctx, types.Attachment{
		TodoID:      todoID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		ObjectKey:   key,
	})
	if err != nil {
		if cleanupErr := s.storage.Delete(ctx, key); cleanupErr != nil {
			log.Printf("cleanup attachment object %s: %v", key, cleanupErr)
		}
		return types.Attachment{}, err
	}
	return attachment, nil
}

// Open returns the attachment metadata and a reader over its bytes.
// The caller closes the reader.
func (s *AttachmentService) Open(ctx context.Context, id, todoID, ownerID int) (types.Attachment, io.ReadCloser, error) {
	if _, err := s.todos.Get(ctx, todoID, ownerID); err != nil {
		return types.Attachment{}, nil, err
	}

	attachment, err := s.attachments.Get(ctx, id, todoID)
	if err != nil {
		return types.Attachment{}, nil, err
	}

	reader, err := s.storage.Get(ctx, attachment.ObjectKey)
	if err != nil {
		return types.Attachment{}, nil, fmt.Errorf("open attachment object: %w", err)
	}
	return attachment, reader, nil
}

func (s *AttachmentService) Delete(ctx context.Context, id, todoID, ownerID int) error {
	if _, err := s.todos.Get(ctx, todoID, ownerID); err != nil {
		return err
	}

	attachment, err := s.attachments.Get(ctx, id, todoID)
	if err != nil {
		return err
	}

	if err := s.attachments.Delete(ctx, id, todoID); err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, attachment.ObjectKey); err != nil {
		log.Printf("delete attachment object %s: %v", attachment.ObjectKey, err)
	}
	return nil
}

func newObjectToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "attachment"
	}
	return hex.EncodeToString(buf[:])
}
