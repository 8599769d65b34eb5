package storage

import (
	"strings"
	"time"
)

// SnippetType is the stored kind of a snippet. Methods are stored as functions.
type SnippetType string

const (
	TypeClass    SnippetType = "class"
	TypeFunction SnippetType = "function"
	TypeImport   SnippetType = "import"
)

// Snippet is the exact source text and metadata of one symbol.
type Snippet struct {
	ID          int64       `json:"id"`
	FilePath    string      `json:"file_path"`
	DirPath     string      `json:"dir_path"`
	Name        string      `json:"name"`
	Type        SnippetType `json:"type"`
	Description string      `json:"description,omitempty"`
	Code        string      `json:"code"`
	LineStart   int         `json:"line_start"`
	LineEnd     int         `json:"line_end"`
	CharCount   int         `json:"char_count"`
	Tags        []string    `json:"tags,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Stats summarizes the store contents.
type Stats struct {
	SnippetCount     int            `json:"snippet_count"`
	FileCount        int            `json:"file_count"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
