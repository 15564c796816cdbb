package repository

import (
	"database/sql"
	"errors"

	"tasklist-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SortCreatedAt orders a task listing by creation time, newest first. Any
// other sort key falls back to the due-date ordering: dated tasks first in
// ascending due-date order, undated tasks last, ties broken by creation time.
const SortCreatedAt = "created_at"

// TaskRepository defines the interface for task storage. Every query is
// scoped by the owner's user id; a task belonging to someone else behaves
// exactly like a task that does not exist.
type TaskRepository interface {
	Create(task *models.Task) error
	GetByID(ownerID, id int64) (*models.Task, error)
	List(ownerID int64, statusFilter, sortKey string) ([]*models.Task, error)
	Update(task *models.Task) error
	UpdateStatus(ownerID, id int64, status string) (*models.Task, error)
	Delete(ownerID, id int64) error
}

type taskRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sqlx.DB, logger *zap.Logger) TaskRepository {
	return &taskRepository{db: db, logger: logger}
}

func (r *taskRepository) Create(task *models.Task) error {
	query := `
		INSERT INTO tasks (title, description, status, due_date, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		query,
		task.Title,
		task.Description,
		task.Status,
		task.DueDate,
		task.UserID,
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create task", zap.Int64("user_id", task.UserID), zap.Error(err))
		return err
	}

	return nil
}

func (r *taskRepository) GetByID(ownerID, id int64) (*models.Task, error) {
	var task models.Task
	query := `
		SELECT id, title, description, status, due_date, created_at, user_id
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.Get(&task, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get task by ID", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &task, nil
}

func (r *taskRepository) List(ownerID int64, statusFilter, sortKey string) ([]*models.Task, error) {
	query := `
		SELECT id, title, description, status, due_date, created_at, user_id
		FROM tasks
		WHERE user_id = $1
	`
	args := []interface{}{ownerID}

	if statusFilter != "" {
		query += ` AND status = $2`
		args = append(args, statusFilter)
	}

	if sortKey == SortCreatedAt {
		query += ` ORDER BY created_at DESC, id DESC`
	} else {
		query += ` ORDER BY CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at DESC, id DESC`
	}

	tasks := []*models.Task{}
	err := r.db.Select(&tasks, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Int64("user_id", ownerID), zap.Error(err))
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) Update(task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3
		WHERE id = $4 AND user_id = $5
		RETURNING status, created_at
	`

	err := r.db.QueryRow(
		query,
		task.Title,
		task.Description,
		task.DueDate,
		task.ID,
		task.UserID,
	).Scan(&task.Status, &task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		r.logger.Error("Failed to update task", zap.Int64("id", task.ID), zap.Error(err))
		return err
	}

	return nil
}

func (r *taskRepository) UpdateStatus(ownerID, id int64, status string) (*models.Task, error) {
	var task models.Task
	query := `
		UPDATE tasks
		SET status = $1
		WHERE id = $2 AND user_id = $3
		RETURNING id, title, description, status, due_date, created_at, user_id
	`

	err := r.db.QueryRowx(query, status, id, ownerID).StructScan(&task)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to update task status", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &task, nil
}

func (r *taskRepository) Delete(ownerID, id int64) error {
	query := `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Exec(query, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int64("id", id), zap.Error(err))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
