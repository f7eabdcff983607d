package db

// TextQuery is the input for a full-text search.
// An empty Query matches every document.
type TextQuery struct {
	Index string
	Query string
	// Fields are searched with multi-field matching; entries may carry a boost ("name^2").
	Fields       []string
	ReturnFields []string
	From         int
	Size         int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	ID     string
	Score  float64
	Source map[string]any
}
