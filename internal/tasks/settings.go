package tasks

import "strings"

// DefaultHeading is the log section heading used when none is configured.
const DefaultHeading = "## Log"

// Settings is the immutable input to Compile.
type Settings struct {
	// IncompleteTaskValues lists extra marks that denote an open task. A
	// space is always included.
	IncompleteTaskValues string `json:"incomplete_task_values"`
	// SupportCanceledTasks makes "-" a canceled mark, treated as completed
	// by move and reset.
	SupportCanceledTasks bool `json:"support_canceled_tasks"`
	// OnlyLowercaseX restricts the complete marks to "x".
	OnlyLowercaseX bool `json:"only_lowercase_x"`
	// RemoveExpression is a regular expression whose matches are deleted
	// from a line when it is completed.
	RemoveExpression string `json:"remove_expression"`
	// AppendDateFormat is a date format stamped at the end of a completed
	// line and stripped again on reset.
	AppendDateFormat string `json:"append_date_format"`
	// CompletedAreaHeader is the heading line of the log section.
	CompletedAreaHeader string `json:"completed_area_header"`
	// CompletedAreaRemoveCheckbox strips the checkbox from tasks as they are
	// moved into the log section.
	CompletedAreaRemoveCheckbox bool `json:"completed_area_remove_checkbox"`

	ContextMenu ContextMenu `json:"context_menu"`
}

// ContextMenu holds the host affordance toggles. The engine only reports
// whether any of them is active.
type ContextMenu struct {
	Complete  bool `json:"complete"`
	Mark      bool `json:"mark"`
	Move      bool `json:"move"`
	ResetTask bool `json:"reset_task"`
	ResetAll  bool `json:"reset_all"`
	ToggleAll bool `json:"toggle_all"`
}

// Any reports whether at least one affordance is enabled.
func (m ContextMenu) Any() bool {
	return m.Complete || m.Mark || m.Move || m.ResetTask || m.ResetAll || m.ToggleAll
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		IncompleteTaskValues: " ",
		CompletedAreaHeader:  DefaultHeading,
	}
}

// Heading returns the configured log heading, trimmed, or DefaultHeading.
func (s Settings) Heading() string {
	if h := strings.TrimSpace(s.CompletedAreaHeader); h != "" {
		return h
	}
	return DefaultHeading
}
