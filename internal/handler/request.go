package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/service"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

//go:embed schema/*.json
var schemaFS embed.FS

type requestSchemas struct {
	create *jsonschema.Schema
	update *jsonschema.Schema
}

func compileSchemas() (*requestSchemas, error) {
	compiler := jsonschema.NewCompiler()
	for _, name := range []string{"create_task.json", "update_task.json"} {
		data, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	create, err := compiler.Compile("create_task.json")
	if err != nil {
		return nil, fmt.Errorf("compile create schema: %w", err)
	}
	update, err := compiler.Compile("update_task.json")
	if err != nil {
		return nil, fmt.Errorf("compile update schema: %w", err)
	}
	return &requestSchemas{create: create, update: update}, nil
}

type createTaskRequest struct {
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Status      *model.Status    `json:"status"`
	DueDate     *model.Timestamp `json:"due_date"`
}

func (req createTaskRequest) toInput() model.CreateTaskInput {
	in := model.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.Ptr(),
	}
	if req.Status != nil {
		in.Status = *req.Status
	}
	return in
}

// updateTaskRequest различает отсутствующие поля и явный null
type updateTaskRequest struct {
	Title       model.Field[string]           `json:"title"`
	Description model.Field[*string]          `json:"description"`
	Status      model.Field[model.Status]     `json:"status"`
	DueDate     model.Field[*model.Timestamp] `json:"due_date"`
}

func (req updateTaskRequest) toPatch() model.TaskPatch {
	patch := model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.DueDate.Set {
		patch.DueDate = model.Some(req.DueDate.Value.Ptr())
	}
	return patch
}

// decodeBody читает тело, проверяет его по JSON Schema и только потом раскладывает в dst
func decodeBody(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty request body", errBadRequest)
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", service.ErrValidation, schemaErrorMessage(err))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

func schemaErrorMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	var msgs []string
	collectSchemaErrors(ve, &msgs)
	return strings.Join(msgs, "; ")
}

func collectSchemaErrors(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		field := strings.TrimPrefix(ve.InstanceLocation, "/")
		if field == "" {
			field = "body"
		}
		*msgs = append(*msgs, fmt.Sprintf("%s: %s", field, ve.Message))
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
