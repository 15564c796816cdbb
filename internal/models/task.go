package models

import (
	"database/sql"
	"time"
)

// Task statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// ValidStatus reports whether status is one of the known task statuses.
func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusDone
}

// DueDateLayout is the only accepted due-date format.
const DueDateLayout = "2006-01-02"

type Task struct {
	ID          int64        `db:"id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Status      string       `db:"status"`
	DueDate     sql.NullTime `db:"due_date"`
	CreatedAt   time.Time    `db:"created_at"`
	UserID      int64        `db:"user_id"`
}

// TaskResponse is the wire shape of a task. DueDate is a YYYY-MM-DD string
// or null.
type TaskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at"`
	UserID      int64   `json:"user_id"`
}

func (t *Task) ToResponse() TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt.Format("2006-01-02 15:04:05"),
		UserID:      t.UserID,
	}
	if t.DueDate.Valid {
		due := t.DueDate.Time.Format(DueDateLayout)
		resp.DueDate = &due
	}
	return resp
}
