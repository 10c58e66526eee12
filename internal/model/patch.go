package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Field - необязательное значение с признаком "передано". JSON null тоже считается переданным.
type Field[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	return json.Unmarshal(data, &f.Value)
}

// TaskPatch - частичное обновление задачи: меняются только переданные поля.
// id и created_at изменить нельзя.
type TaskPatch struct {
	Title       Field[string]
	Description Field[*string]
	Status      Field[Status]
	DueDate     Field[*time.Time]
}

func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set && !p.DueDate.Set
}

// Columns возвращает переданные поля по именам колонок; явный null дает nil
func (p TaskPatch) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if p.Title.Set {
		cols["title"] = p.Title.Value
	}
	if p.Description.Set {
		if p.Description.Value == nil {
			cols["description"] = nil
		} else {
			cols["description"] = *p.Description.Value
		}
	}
	if p.Status.Set {
		cols["status"] = string(p.Status.Value)
	}
	if p.DueDate.Set {
		if p.DueDate.Value == nil {
			cols["due_date"] = nil
		} else {
			cols["due_date"] = p.DueDate.Value.UTC()
		}
	}
	return cols
}

// Timestamp принимает RFC 3339, дату-время без зоны и просто дату; время без зоны считается UTC
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t *Timestamp) Ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
