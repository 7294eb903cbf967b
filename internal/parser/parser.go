// Package parser extracts frontmatter, title, tags and checkbox tasks from
// Markdown content.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/taskcollector/internal/models"
	"github.com/starford/taskcollector/internal/tasks"
)

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string
	Title       string
}

// Scanner finds the task lines of a document. *tasks.Engine implements it.
type Scanner interface {
	Scan(doc string) []tasks.TaskLine
}

// Parse extracts frontmatter, body, tags and title from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// ExtractTasks scans the whole document, frontmatter included, so task line
// numbers match the file.
func ExtractTasks(path, content string, scanner Scanner) []models.Task {
	lines := scanner.Scan(content)
	out := make([]models.Task, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.Task{
			Path:     path,
			Line:     l.Line,
			Indent:   l.Indent,
			Mark:     l.Mark,
			State:    l.State,
			Text:     l.Text,
			BlockRef: l.BlockRef,
			Tags:     InlineTags(l.Text),
			InLog:    l.InLog,
		})
	}
	return out
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without frontmatter the whole content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: treat everything as body.
		return nil, string(data), nil
	}
	return fm, body, nil
}

// deriveTitle returns the frontmatter "title", else the first H1, else "".
func deriveTitle(fm map[string]any, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
