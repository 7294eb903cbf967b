// Package models defines the domain types shared by storage, index and the
// service layer.
package models

import "time"

// Document is a parsed Markdown file in the vault.
type Document struct {
	Path        string         `json:"path"`
	Content     string         `json:"content"`
	Title       string         `json:"title,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Tags        []string       `json:"tags"`
	Tasks       []Task         `json:"tasks"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentMetadata is returned by storage listings.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is one checkbox line of a document, as stored in the index.
type Task struct {
	Path string `json:"path"`
	// Line is zero based and counts from the top of the file.
	Line     int      `json:"line"`
	Indent   string   `json:"indent,omitempty"`
	Mark     string   `json:"mark"`
	State    string   `json:"state"`
	Text     string   `json:"text"`
	BlockRef string   `json:"block_ref,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	InLog    bool     `json:"in_log"`
}
