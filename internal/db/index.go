package db

// IndexFieldType enumerates supported mapping types.
type IndexFieldType string

const (
	// IndexFieldText is an analyzed full-text field.
	IndexFieldText IndexFieldType = "text"
	// IndexFieldKeyword is an exact-value field.
	IndexFieldKeyword IndexFieldType = "keyword"
	// IndexFieldFloat is a numeric field.
	IndexFieldFloat IndexFieldType = "float"
)

// IndexField describes a single field mapping.
type IndexField struct {
	Name     string
	Type     IndexFieldType
	Analyzer string // text only, e.g. "english"
	// KeywordSubfield adds a "<name>.keyword" exact-value subfield (text only).
	KeywordSubfield bool
	IgnoreAbove     int // keyword subfield limit; 0 means engine default
}

// IndexDefinition is the input for CreateIndex.
type IndexDefinition struct {
	Name     string
	Shards   int
	Replicas int
	Fields   []IndexField
}

// Mapping renders the definition as an index creation body.
func (d *IndexDefinition) Mapping() map[string]any {
	props := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		m := map[string]any{"type": string(f.Type)}
		if f.Type == IndexFieldText {
			if f.Analyzer != "" {
				m["analyzer"] = f.Analyzer
			}
			if f.KeywordSubfield {
				kw := map[string]any{"type": string(IndexFieldKeyword)}
				if f.IgnoreAbove > 0 {
					kw["ignore_above"] = f.IgnoreAbove
				}
				m["fields"] = map[string]any{"keyword": kw}
			}
		}
		props[f.Name] = m
	}

	body := map[string]any{
		"mappings": map[string]any{"properties": props},
	}
	settings := map[string]any{}
	if d.Shards > 0 {
		settings["number_of_shards"] = d.Shards
	}
	if d.Replicas >= 0 {
		settings["number_of_replicas"] = d.Replicas
	}
	body["settings"] = settings
	return body
}
