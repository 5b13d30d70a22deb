package types

import "time"

// Todo statuses. Any other value is rejected at the service layer
// and by the database check constraint.
const (
	StatusPending   = "pending"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
)

// ValidStatus reports whether s is one of the allowed todo statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// Todo represents a single work item owned by a user.
type Todo struct {
	// ID is the unique identifier of the todo.
	ID int `json:"id" db:"id"`

	// Title is a short summary of the work item.
	Title string `json:"title" db:"title"`

	// Description is the full text of the work item.
	Description string `json:"description" db:"description"`

	// Status is one of pending, ongoing, or completed.
	Status string `json:"status" db:"status"`

	// OwnerID references the user the todo belongs to. It is set from the
	// authenticated caller and never serialized; the owner is implied by
	// the session used to fetch the record.
	OwnerID int `json:"-" db:"owner_id"`

	// CreatedAt is the timestamp when the todo was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the todo.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Attachment represents a file attached to a todo. The object bytes live in
// the configured object store under ObjectKey; this record is the metadata.
type Attachment struct {
	ID          int       `json:"id" db:"id"`
	TodoID      int       `json:"todo_id" db:"todo_id"`
	Filename    string    `json:"filename" db:"filename"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	ObjectKey   string    `json:"-" db:"object_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
