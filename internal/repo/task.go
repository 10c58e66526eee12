package repo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
)

var (
	ErrorNotFound   = errors.New("not found")
	ErrorConstraint = errors.New("constraint violation")
)

//go:embed schema.sql
var schemaSQL string

const taskColumns = `id, title, description, status, created_at, due_date`

type TaskRepo struct { // Репозиторий для работы непосредственно с PostgreSQL
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

// EnsureSchema создает таблицу и индексы, если их еще нет
func (r *TaskRepo) EnsureSchema(ctx context.Context) error {
	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, schemaSQL)
		return err
	})
}

// withConn берет соединение из пула на время одной операции и всегда возвращает его обратно
func (r *TaskRepo) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return r.mapError(fn(conn))
}

func (r *TaskRepo) Create(ctx context.Context, in model.CreateTaskInput) (model.Task, error) {
	status := in.Status
	if status == "" {
		status = model.DefaultStatus
	}

	var t model.Task
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		t, err = scanTask(conn.QueryRow(ctx, `
			INSERT INTO tasks (title, description, status, due_date)
			VALUES ($1, $2, $3, $4)
			RETURNING `+taskColumns,
			in.Title, in.Description, string(status), utcPtr(in.DueDate),
		))
		return err
	})
	return t, err
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		t, err = scanTask(conn.QueryRow(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE id = $1
		`, id))
		return err
	})
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY ` + orderClause(filter.SortBy) + `
		OFFSET $2
		LIMIT $3
	`

	tasks := make([]model.Task, 0, filter.Limit)
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, status, filter.Offset, filter.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	cols := patch.Columns()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	// В SET попадают только переданные поля
	sets := make([]string, 0, len(names))
	args := []any{id}
	for _, name := range names {
		args = append(args, cols[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}

	var t model.Task
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		t, err = scanTask(conn.QueryRow(ctx, `
			UPDATE tasks
			SET `+strings.Join(sets, ", ")+`
			WHERE id = $1
			RETURNING `+taskColumns,
			args...,
		))
		return err
	})
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		cmd, err := conn.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrorNotFound
		}
		return nil
	})
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", "23514": // not_null_violation, check_violation
			return fmt.Errorf("%w: %s", ErrorConstraint, pgErr.ConstraintName)
		}
	}
	return err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t      model.Task
		status string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.DueDate); err != nil {
		return model.Task{}, err
	}
	t.Status = model.Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.DueDate = utcPtr(t.DueDate)
	return t, nil
}

func orderClause(sortBy model.SortBy) string {
	switch sortBy {
	case model.SortByDueDate:
		return "due_date ASC NULLS LAST, id ASC"
	default:
		return "created_at ASC, id ASC"
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
