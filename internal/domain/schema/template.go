package schema

import (
	"fmt"

	"github.com/kailas-cloud/cvsearch/internal/domain"
)

// Block is one labelled line of the result card, e.g. "Duration: 4.5s".
type Block struct {
	Field  string
	Label  string
	Suffix string
}

// Template maps result fields onto the rendered card.
type Template struct {
	title  string
	blocks []Block
}

// NewTemplate creates a Template. The title field is required; block fields and labels must be set.
func NewTemplate(title string, blocks []Block) (Template, error) {
	if title == "" {
		return Template{}, fmt.Errorf("%w: template title field is required", domain.ErrInvalidSchema)
	}
	for i, b := range blocks {
		if b.Field == "" {
			return Template{}, fmt.Errorf("%w: template block %d has no field", domain.ErrInvalidSchema, i)
		}
		if b.Label == "" {
			return Template{}, fmt.Errorf("%w: template block %q has no label", domain.ErrInvalidSchema, b.Field)
		}
	}
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return Template{title: title, blocks: out}, nil
}

// DefaultTemplate returns the transcription card: the text as title, then duration and speaker attributes.
func DefaultTemplate() Template {
	return Template{
		title: GeneratedText,
		blocks: []Block{
			{Field: Duration, Label: "Duration", Suffix: "s"},
			{Field: Age, Label: "Age"},
			{Field: Gender, Label: "Gender"},
			{Field: Accent, Label: "Accent"},
		},
	}
}

// Title returns the field rendered as the card heading.
func (t Template) Title() string { return t.title }

// Blocks returns a copy of the display blocks in render order.
func (t Template) Blocks() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// FieldNames returns every field the template reads, title first.
func (t Template) FieldNames() []string {
	names := make([]string, 0, len(t.blocks)+1)
	names = append(names, t.title)
	for _, b := range t.blocks {
		names = append(names, b.Field)
	}
	return names
}
