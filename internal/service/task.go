package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasklist-backend/internal/models"
	"tasklist-backend/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTitleRequired  = errors.New("task title must not be empty")
	ErrInvalidDueDate = errors.New("due date must use the YYYY-MM-DD format")
	ErrInvalidStatus  = errors.New("invalid status value")
)

// TaskService implements the task operations. The owner id comes from the
// authenticated request; no operation can reach another owner's rows.
type TaskService interface {
	List(ownerID int64, statusFilter, sortKey string) ([]*models.Task, error)
	Get(ownerID, id int64) (*models.Task, error)
	Create(ownerID int64, title, description, dueDate string) (*models.Task, error)
	Update(ownerID, id int64, title, description, dueDate string) (*models.Task, error)
	UpdateStatus(ownerID, id int64, status string) (*models.Task, error)
	Delete(ownerID, id int64) error
}

type taskService struct {
	repo   repository.TaskRepository
	logger *zap.Logger
}

func NewTaskService(repo repository.TaskRepository, logger *zap.Logger) TaskService {
	return &taskService{repo: repo, logger: logger}
}

func (s *taskService) List(ownerID int64, statusFilter, sortKey string) ([]*models.Task, error) {
	tasks, err := s.repo.List(ownerID, statusFilter, sortKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Get(ownerID, id int64) (*models.Task, error) {
	task, err := s.repo.GetByID(ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *taskService) Create(ownerID int64, title, description, dueDate string) (*models.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	due, err := parseDueDate(dueDate)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		Status:      models.StatusPending,
		DueDate:     due,
		UserID:      ownerID,
	}

	if err := s.repo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Update replaces title, description and due date wholesale. An absent due
// date clears the stored one, matching PUT semantics.
func (s *taskService) Update(ownerID, id int64, title, description, dueDate string) (*models.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	due, err := parseDueDate(dueDate)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          id,
		Title:       title,
		Description: description,
		DueDate:     due,
		UserID:      ownerID,
	}

	if err := s.repo.Update(task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *taskService) UpdateStatus(ownerID, id int64, status string) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	task, err := s.repo.UpdateStatus(ownerID, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *taskService) Delete(ownerID, id int64) error {
	err := s.repo.Delete(ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.logger.Info("Task deleted.", zap.Int64("id", id), zap.Int64("user_id", ownerID))
	return nil
}

func parseDueDate(dueDate string) (sql.NullTime, error) {
	if dueDate == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(models.DueDateLayout, dueDate)
	if err != nil {
		return sql.NullTime{}, ErrInvalidDueDate
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}
