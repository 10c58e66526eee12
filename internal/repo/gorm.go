package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
)

// taskRecord - отображение таблицы tasks для gorm
type taskRecord struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	Title       string     `gorm:"not null"`
	Description *string
	Status      string     `gorm:"size:20;not null;index;check:chk_tasks_status,status IN ('to do', 'in progress', 'done')"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index"`
	DueDate     *time.Time `gorm:"index"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

func (rec taskRecord) toModel() model.Task {
	return model.Task{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Status:      model.Status(rec.Status),
		CreatedAt:   rec.CreatedAt.UTC(),
		DueDate:     utcPtr(rec.DueDate),
	}
}

// GormTaskRepo - встроенное файловое хранилище на SQLite через gorm
type GormTaskRepo struct {
	db *gorm.DB
}

func NewGormTaskRepo(db *gorm.DB) *GormTaskRepo {
	return &GormTaskRepo{db: db}
}

// OpenSQLite открывает (или создает) файл БД и мигрирует таблицу tasks
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// SQLite допускает только одного писателя
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return db, nil
}

// session выделяет соединение на время одной операции и освобождает его на любом пути выхода
func (r *GormTaskRepo) session(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		// каждый запрос внутри fn начинается с чистого statement на том же соединении
		return mapSQLiteError(fn(conn.Session(&gorm.Session{})))
	})
}

// mapSQLiteError приводит ошибки драйвера к ошибкам репозитория, как mapError для PostgreSQL
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", ErrorConstraint, sqliteErr.Error())
	}
	return err
}

func (r *GormTaskRepo) Create(ctx context.Context, in model.CreateTaskInput) (model.Task, error) {
	status := in.Status
	if status == "" {
		status = model.DefaultStatus
	}
	rec := taskRecord{
		Title:       in.Title,
		Description: in.Description,
		Status:      string(status),
		DueDate:     utcPtr(in.DueDate),
	}

	var stored taskRecord
	err := r.session(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		// Перечитываем запись: сохраненное представление - источник истины
		return tx.First(&stored, rec.ID).Error
	})
	if err != nil {
		return model.Task{}, err
	}
	return stored.toModel(), nil
}

func (r *GormTaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	var rec taskRecord
	err := r.session(ctx, func(tx *gorm.DB) error {
		return tx.First(&rec, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Task{}, ErrorNotFound
		}
		return model.Task{}, fmt.Errorf("failed to find task: %w", err)
	}
	return rec.toModel(), nil
}

func (r *GormTaskRepo) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var recs []taskRecord
	err := r.session(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&taskRecord{})
		if filter.Status != nil {
			q = q.Where("status = ?", string(*filter.Status))
		}
		return q.Order(orderClause(filter.SortBy)).
			Offset(filter.Offset).
			Limit(filter.Limit).
			Find(&recs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(recs))
	for _, rec := range recs {
		tasks = append(tasks, rec.toModel())
	}
	return tasks, nil
}

func (r *GormTaskRepo) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	var rec taskRecord
	err := r.session(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&taskRecord{}).Where("id = ?", id).Updates(patch.Columns())
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrorNotFound
		}
		return tx.First(&rec, id).Error
	})
	if err != nil {
		return model.Task{}, err
	}
	return rec.toModel(), nil
}

func (r *GormTaskRepo) Delete(ctx context.Context, id int64) error {
	return r.session(ctx, func(tx *gorm.DB) error {
		result := tx.Delete(&taskRecord{}, id)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrorNotFound
		}
		return nil
	})
}
