package parser

import (
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// InlineTags returns the deduplicated #tags of text in order of appearance.
func InlineTags(text string) []string {
	return appendTags(nil, map[string]struct{}{}, text)
}

// extractTags collects frontmatter "tags" followed by inline body tags.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = addTag(out, seen, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = addTag(out, seen, strings.TrimPrefix(s, "#"))
		}
	}
	return appendTags(out, seen, body)
}

func appendTags(out []string, seen map[string]struct{}, text string) []string {
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		out = addTag(out, seen, m[1])
	}
	return out
}

func addTag(out []string, seen map[string]struct{}, tag string) []string {
	if tag == "" {
		return out
	}
	if _, dup := seen[tag]; dup {
		return out
	}
	seen[tag] = struct{}{}
	return append(out, tag)
}
