package config

import (
	"fmt"

	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
)

// Schema builds the query shape and result template, falling back to the
// transcription defaults when the corresponding section is empty.
// The template is validated against the schema.
func (c SearchConfig) Schema() (schema.Schema, schema.Template, error) {
	sch := schema.Default()
	if len(c.Fields) > 0 {
		fields := make([]schema.Field, 0, len(c.Fields))
		for _, fc := range c.Fields {
			f, err := schema.NewField(fc.Name, fc.Search, fc.Result, fc.Boost)
			if err != nil {
				return schema.Schema{}, schema.Template{}, fmt.Errorf("search.fields: %w", err)
			}
			fields = append(fields, f)
		}
		var err error
		if sch, err = schema.New(fields); err != nil {
			return schema.Schema{}, schema.Template{}, fmt.Errorf("search.fields: %w", err)
		}
	}

	tmpl := schema.DefaultTemplate()
	if c.Template.Title != "" || len(c.Template.Blocks) > 0 {
		blocks := make([]schema.Block, len(c.Template.Blocks))
		for i, b := range c.Template.Blocks {
			blocks[i] = schema.Block{Field: b.Field, Label: b.Label, Suffix: b.Suffix}
		}
		var err error
		if tmpl, err = schema.NewTemplate(c.Template.Title, blocks); err != nil {
			return schema.Schema{}, schema.Template{}, fmt.Errorf("search.template: %w", err)
		}
	}

	if err := sch.Validate(tmpl); err != nil {
		return schema.Schema{}, schema.Template{}, fmt.Errorf("search: %w", err)
	}
	return sch, tmpl, nil
}
