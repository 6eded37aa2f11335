// Package validation はリクエストボディをJSONスキーマで検証します (API Gatewayのリクエストモデル相当)。
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaError はスキーマ違反です。Message は最初に見つかった違反の内容です。
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator は組み込みスキーマをコンパイル済みで保持します。
type Validator struct {
	createTodo *jsonschema.Schema
	updateTodo *jsonschema.Schema
}

// New は組み込みスキーマをコンパイルします。
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	createTodo, err := compile(compiler, "create_todo.json")
	if err != nil {
		return nil, err
	}
	updateTodo, err := compile(compiler, "update_todo.json")
	if err != nil {
		return nil, err
	}
	return &Validator{createTodo: createTodo, updateTodo: updateTodo}, nil
}

// MustNew は New と同じですが、失敗時に panic します。
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func compile(compiler *jsonschema.Compiler, name string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	url := "mem://schemas/" + name
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// CreateTodo は POST /todos のボディを検証します。
func (v *Validator) CreateTodo(body []byte) error {
	return validate(v.createTodo, body)
}

// UpdateTodo は PATCH /todos/:todoId のボディを検証します。
func (v *Validator) UpdateTodo(body []byte) error {
	return validate(v.updateTodo, body)
}

func validate(schema *jsonschema.Schema, body []byte) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return &SchemaError{Message: "body is not valid JSON"}
	}
	if err := schema.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

func toSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Message: err.Error()}
	}
	// 一番深い原因が一番具体的なメッセージを持つ
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &SchemaError{
		Field:   strings.TrimPrefix(ve.InstanceLocation, "/"),
		Message: ve.Message,
	}
}
