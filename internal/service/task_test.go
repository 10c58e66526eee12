package service

import (
	"context"
	"errors"
	"testing"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, in model.CreateTaskInput) (model.Task, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func statusPtr(s model.Status) *model.Status { return &s }

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name      string
		in        model.CreateTaskInput
		setupMock func(*MockTaskRepository)
		wantErr   error
	}{
		{
			name: "default status applied",
			in:   model.CreateTaskInput{Title: "Buy milk"},
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(in model.CreateTaskInput) bool {
					return in.Title == "Buy milk" && in.Status == model.StatusToDo
				})).Return(model.Task{ID: 1, Title: "Buy milk", Status: model.StatusToDo}, nil)
			},
		},
		{
			name: "explicit status kept",
			in:   model.CreateTaskInput{Title: "Ship", Status: model.StatusDone},
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(in model.CreateTaskInput) bool {
					return in.Status == model.StatusDone
				})).Return(model.Task{ID: 2, Title: "Ship", Status: model.StatusDone}, nil)
			},
		},
		{
			name:      "validation error - empty title",
			in:        model.CreateTaskInput{Title: ""},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "validation error - whitespace title",
			in:        model.CreateTaskInput{Title: "   "},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "validation error - unknown status",
			in:        model.CreateTaskInput{Title: "Task", Status: "blocked"},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo)
			result, err := service.Create(context.Background(), tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotZero(t, result.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_List(t *testing.T) {
	tests := []struct {
		name      string
		filter    model.TaskFilter
		setupMock func(*MockTaskRepository)
		wantErr   error
	}{
		{
			name:   "default sort key",
			filter: model.TaskFilter{Limit: DefaultLimit},
			setupMock: func(m *MockTaskRepository) {
				m.On("List", mock.Anything, model.TaskFilter{SortBy: model.SortByCreatedAt, Limit: 10}).
					Return([]model.Task{}, nil)
			},
		},
		{
			name:   "status filter and due date sort",
			filter: model.TaskFilter{Status: statusPtr(model.StatusDone), SortBy: model.SortByDueDate, Limit: 100, Offset: 5},
			setupMock: func(m *MockTaskRepository) {
				m.On("List", mock.Anything, mock.MatchedBy(func(f model.TaskFilter) bool {
					return *f.Status == model.StatusDone && f.SortBy == model.SortByDueDate && f.Limit == 100 && f.Offset == 5
				})).Return([]model.Task{}, nil)
			},
		},
		{
			name:      "limit zero",
			filter:    model.TaskFilter{Limit: 0},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "limit too high",
			filter:    model.TaskFilter{Limit: 101},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "negative offset",
			filter:    model.TaskFilter{Limit: 10, Offset: -1},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "unknown sort key",
			filter:    model.TaskFilter{SortBy: "invalid_field", Limit: 10},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "unknown status",
			filter:    model.TaskFilter{Status: statusPtr("pending"), Limit: 10},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo)
			_, err := service.List(context.Background(), tt.filter)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_Update(t *testing.T) {
	t.Run("partial update passed through", func(t *testing.T) {
		patch := model.TaskPatch{Status: model.Some(model.StatusDone)}

		mockRepo := new(MockTaskRepository)
		mockRepo.On("Update", mock.Anything, int64(1), patch).
			Return(model.Task{ID: 1, Title: "Same", Status: model.StatusDone}, nil)

		service := NewTaskService(mockRepo)
		result, err := service.Update(context.Background(), 1, patch)

		require.NoError(t, err)
		assert.Equal(t, model.StatusDone, result.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		service := NewTaskService(mockRepo)

		_, err := service.Update(context.Background(), 1, model.TaskPatch{Title: model.Some(" ")})
		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		service := NewTaskService(mockRepo)

		_, err := service.Update(context.Background(), 1, model.TaskPatch{Status: model.Some(model.Status("archived"))})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("not found propagates", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("Update", mock.Anything, int64(42), mock.Anything).Return(model.Task{}, repo.ErrorNotFound)

		service := NewTaskService(mockRepo)
		_, err := service.Update(context.Background(), 42, model.TaskPatch{Title: model.Some("x")})
		assert.ErrorIs(t, err, repo.ErrorNotFound)
	})
}

func TestTaskService_GetDelete(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("Get", mock.Anything, int64(7)).Return(model.Task{ID: 7}, nil)
	mockRepo.On("Delete", mock.Anything, int64(7)).Return(nil)
	mockRepo.On("Delete", mock.Anything, int64(8)).Return(repo.ErrorNotFound)

	service := NewTaskService(mockRepo)

	task, err := service.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), task.ID)

	require.NoError(t, service.Delete(context.Background(), 7))
	assert.ErrorIs(t, service.Delete(context.Background(), 8), repo.ErrorNotFound)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_StorageErrorPropagates(t *testing.T) {
	storageErr := errors.New("connection refused")

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(model.Task{}, storageErr)

	service := NewTaskService(mockRepo)
	_, err := service.Create(context.Background(), model.CreateTaskInput{Title: "x"})

	assert.ErrorIs(t, err, storageErr)
	assert.NotErrorIs(t, err, ErrValidation)
}
