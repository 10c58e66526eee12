package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
	"github.com/BuzzLyutic/task-tracker-api/internal/service"
	"github.com/BuzzLyutic/task-tracker-api/pkg/respond"
)

const (
	msgTaskNotFound = "Task not found"
	msgTaskDeleted  = "Task deleted successfully"
	msgInternal     = "Internal server error"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
	schemas *requestSchemas
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) (*TaskHandler, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &TaskHandler{
		service: srv,
		logger:  logger,
		schemas: schemas,
	}, nil
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(w, r, h.schemas.create, &req); err != nil {
		h.logger.Debug("rejected create request", zap.Error(err))
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	tasks, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := decodeBody(w, r, h.schemas.update, &req); err != nil {
		h.logger.Debug("rejected update request", zap.Int64("task_id", id), zap.Error(err))
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Update(r.Context(), id, req.toPatch())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.Detail(w, r, http.StatusOK, msgTaskDeleted)
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, msgTaskNotFound)
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repo.ErrorConstraint):
		h.logger.Warn("constraint violation passed validation", zap.Error(err))
		respond.Error(w, r, http.StatusUnprocessableEntity, "validation error")
	case errors.Is(err, errBadRequest):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, msgInternal)
	}
}

func taskID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be an integer, got %q", service.ErrValidation, raw)
	}
	return id, nil
}

// parseFilter разбирает query-параметры; пустое значение равносильно отсутствию параметра
func parseFilter(r *http.Request) (model.TaskFilter, error) {
	q := r.URL.Query()
	filter := model.TaskFilter{
		SortBy: model.DefaultSortBy,
		Limit:  service.DefaultLimit,
	}

	if v := q.Get("status"); v != "" {
		status, err := model.ParseStatus(v)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		filter.Status = &status
	}
	if v := q.Get("sort_by"); v != "" {
		sortBy, err := model.ParseSortBy(v)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		filter.SortBy = sortBy
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit", filter.Limit); err != nil {
		return filter, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", service.ErrValidation, name, raw)
	}
	return n, nil
}
