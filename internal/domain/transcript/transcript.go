package transcript

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// namespace seeds deterministic document ids so re-indexing the same clip overwrites it.
var namespace = uuid.MustParse("5d3c9f61-7a8e-4b1c-9b2e-0c6f1a7e4d20")

// CSV column names of the Common Voice dataset file.
const (
	ColumnFilename      = "filename"
	ColumnSentence      = "sentence"
	ColumnGeneratedText = "generated_text"
	ColumnDuration      = "duration"
	ColumnAge           = "age"
	ColumnGender        = "gender"
	ColumnAccent        = "accent"
	ColumnPath          = "path"
)

// Transcript is one indexed clip: the ASR output plus the dataset's speaker metadata.
type Transcript struct {
	GeneratedText string  `json:"generated_text"`
	OriginalText  string  `json:"original_text"`
	Duration      float64 `json:"duration"`
	Age           string  `json:"age"`
	Gender        string  `json:"gender"`
	Accent        string  `json:"accent"`
	Path          string  `json:"path"`
}

// FromRow maps a dataset row to a Transcript. Missing cells become empty strings and
// a missing or unparsable duration becomes 0.
func FromRow(row map[string]string) Transcript {
	return Transcript{
		GeneratedText: row[ColumnGeneratedText],
		OriginalText:  row[ColumnSentence],
		Duration:      parseDuration(row[ColumnDuration]),
		Age:           row[ColumnAge],
		Gender:        row[ColumnGender],
		Accent:        row[ColumnAccent],
		Path:          pathOf(row),
	}
}

// ID returns a stable document id derived from the clip path, or from seq when the path is empty.
func (t Transcript) ID(seq int) string {
	key := t.Path
	if key == "" {
		key = "row:" + strconv.Itoa(seq)
	}
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

func pathOf(row map[string]string) string {
	if p := row[ColumnPath]; p != "" {
		return p
	}
	return row[ColumnFilename]
}

func parseDuration(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
