// Package docschema enforces the shape of task and user documents before
// they are written to a store. Schemas are JSON Schema (draft-07) files
// embedded in the binary.
package docschema

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Collection names, matching the schema file names.
const (
	CollectionTasks = "task"
	CollectionUsers = "user"
)

// ViolationError lists every way a document failed its schema.
type ViolationError struct {
	Collection string
	Details    []string
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s document invalid against schema: %s", e.Collection, strings.Join(e.Details, "; "))
}

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, 2)}
	for _, name := range []string{CollectionTasks, CollectionUsers} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", name, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid %s schema: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// ValidateTask checks doc, anything that marshals to the task JSON shape
// (a *domain.Task or a decoded document), against the task schema.
func (v *Validator) ValidateTask(doc any) error {
	return v.validate(CollectionTasks, doc)
}

// ValidateUser checks doc against the user schema.
func (v *Validator) ValidateUser(doc any) error {
	return v.validate(CollectionUsers, doc)
}

func (v *Validator) validate(collection string, doc any) error {
	schema, ok := v.schemas[collection]
	if !ok {
		return fmt.Errorf("no schema registered for %s", collection)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violation := &ViolationError{Collection: collection}
	for _, desc := range result.Errors() {
		violation.Details = append(violation.Details, desc.String())
	}
	return violation
}
