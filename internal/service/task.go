package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type TaskService struct {
	repo repo.TaskRepository
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) Create(ctx context.Context, in model.CreateTaskInput) (model.Task, error) {
	if err := validateTitle(in.Title); err != nil { // Валидация до обращения к хранилищу
		return model.Task{}, err
	}
	if in.Status == "" {
		in.Status = model.DefaultStatus
	} else if err := validateStatus(in.Status); err != nil {
		return model.Task{}, err
	}

	return s.repo.Create(ctx, in)
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

// List проверяет фильтр и подставляет значения по умолчанию для незаданного sort_by
func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	if filter.Status != nil {
		if err := validateStatus(*filter.Status); err != nil {
			return nil, err
		}
	}
	if filter.SortBy == "" {
		filter.SortBy = model.DefaultSortBy
	} else if !filter.SortBy.Valid() {
		return nil, fmt.Errorf("%w: sort_by must be one of created_at, due_date", ErrValidation)
	}
	if filter.Limit < 1 || filter.Limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxLimit)
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must be non-negative", ErrValidation)
	}

	return s.repo.List(ctx, filter)
}

func (s *TaskService) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if patch.Title.Set {
		if err := validateTitle(patch.Title.Value); err != nil {
			return model.Task{}, err
		}
	}
	if patch.Status.Set {
		if err := validateStatus(patch.Status.Value); err != nil {
			return model.Task{}, err
		}
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	return nil
}

func validateStatus(st model.Status) error {
	if !st.Valid() {
		names := make([]string, 0, len(model.Statuses))
		for _, s := range model.Statuses {
			names = append(names, "'"+string(s)+"'")
		}
		return fmt.Errorf("%w: status must be one of %s", ErrValidation, strings.Join(names, ", "))
	}
	return nil
}
