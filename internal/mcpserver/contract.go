package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/taskcollector/internal/tasks"
)

// TaskSyntaxURI is the resource URI of the task syntax reference.
const TaskSyntaxURI = "taskcollector://task-syntax"

// TaskSyntaxContract describes how tasks are written in vault documents and
// what each operation does to them.
const TaskSyntaxContract = `# Task Syntax

A task is a Markdown list item with a one-character mark in brackets:

` + "```" + `markdown
- [ ] open task
  - [ ] nested task (indent with spaces or tabs)
- [x] completed task
- [-] canceled task (only when canceled tasks are supported)
- [ ] task with a block reference ^abc123
` + "```" + `

## Rules

1. The list marker is ` + "`-`" + `, followed by one space, the bracketed mark and
   one space. ` + "`* [ ]`" + ` and ` + "`-[ ]`" + ` are not tasks.
2. A space is always an incomplete mark. Other marks are configured below.
3. A block reference (` + "`^id`" + `) at the end of a line stays last when a
   completion date is appended.
4. The log section starts at the configured heading line and ends at the
   next heading or ` + "`---`" + ` rule. Only the first such heading counts.
5. Lines indented under a completed task travel with it when it is moved.
6. Line numbers are zero based and count every line of the file,
   frontmatter included.

## Operations

- ` + "`complete_all_tasks`" + `: completes every incomplete task.
- ` + "`reset_all_tasks`" + `: reopens completed tasks outside the log section.
- ` + "`move_completed_tasks`" + `: moves completed tasks into the log section,
  creating it at the end of the document when missing.
- ` + "`mark_tasks`" + `: applies one mark to a line span. Plain list items become
  tasks. The mark ` + "`Backspace`" + ` removes the checkbox.
`

// TaskSyntax returns the contract followed by the live vocabulary.
func TaskSyntax(s tasks.Settings, v tasks.Vocabulary) string {
	var b strings.Builder
	b.WriteString(TaskSyntaxContract)
	b.WriteString("\n## Current settings\n\n")
	fmt.Fprintf(&b, "- Incomplete marks: %s\n", quoteMarks(v.Marks(tasks.Incomplete)))
	fmt.Fprintf(&b, "- Complete marks: %s\n", quoteMarks(v.Marks(tasks.Complete)))
	if s.SupportCanceledTasks {
		fmt.Fprintf(&b, "- Canceled marks: %s\n", quoteMarks(v.Marks(tasks.Canceled)))
	}
	fmt.Fprintf(&b, "- Log heading: `%s`\n", s.Heading())
	if s.AppendDateFormat != "" {
		fmt.Fprintf(&b, "- Completion date format: `%s`\n", s.AppendDateFormat)
	}
	if s.RemoveExpression != "" {
		fmt.Fprintf(&b, "- Removed on completion: `%s`\n", s.RemoveExpression)
	}
	if s.CompletedAreaRemoveCheckbox {
		b.WriteString("- Moved tasks lose their checkbox.\n")
	}
	return b.String()
}

func quoteMarks(marks string) string {
	if marks == "" {
		return "none"
	}
	out := make([]string, 0, len(marks))
	for _, r := range marks {
		out = append(out, "`["+string(r)+"]`")
	}
	return strings.Join(out, ", ")
}
