package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidSortBy = errors.New("invalid sort key")
)

// Status - закрытое множество состояний задачи
type Status string

const (
	StatusToDo       Status = "to do"
	StatusInProgress Status = "in progress"
	StatusDone       Status = "done"
)

// DefaultStatus присваивается задаче при создании, если статус не передан
const DefaultStatus = StatusToDo

var Statuses = []Status{StatusToDo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// SortBy - ключ сортировки списка задач
type SortBy string

const (
	SortByCreatedAt SortBy = "created_at"
	SortByDueDate   SortBy = "due_date"
)

const DefaultSortBy = SortByCreatedAt

func (s SortBy) Valid() bool {
	return s == SortByCreatedAt || s == SortByDueDate
}

func ParseSortBy(s string) (SortBy, error) {
	sb := SortBy(s)
	if !sb.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortBy, s)
	}
	return sb, nil
}

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date"`
}

type TaskFilter struct {
	Status *Status
	SortBy SortBy
	Limit  int
	Offset int
}

// CreateTaskInput - данные для новой задачи. Пустой Status означает "не передан".
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      Status
	DueDate     *time.Time
}
