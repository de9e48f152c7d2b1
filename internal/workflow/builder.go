package workflow

import "wfengine/internal/node"

// Builder accumulates a schema's fields before handing it to Validate,
// mirroring the schema's own With* chain but giving callers a distinct
// entry point that always validates before returning a usable Schema.
type Builder struct {
	schema *Schema
}

// NewBuilder starts a builder for workflowType rooted at start.
func NewBuilder(workflowType string, start node.Type) *Builder {
	return &Builder{schema: NewSchema(workflowType, start)}
}

func (b *Builder) WithDescription(description string) *Builder {
	b.schema.WithDescription(description)
	return b
}

func (b *Builder) WithNodes(nodes ...*node.Config) *Builder {
	b.schema.WithNodes(nodes...)
	return b
}

// Build runs the full validation pipeline and returns the schema if it
// passes, or the first validation error encountered.
func (b *Builder) Build() (*Schema, error) {
	if err := Validate(b.schema); err != nil {
		return nil, err
	}
	return b.schema, nil
}
