package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/taskcollector/internal/collector"
	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/models"
	"github.com/starford/taskcollector/internal/tasks"
)

// maxTaskLimit caps GET /tasks.
const maxTaskLimit = 1000

// OperationRequest is the body of POST /documents/{path}/{operation}.
// Every field is optional.
type OperationRequest struct {
	Mark      string           `json:"mark,omitempty" example:"x"`
	Selection *tasks.Selection `json:"selection,omitempty"`
	// IfMatch overrides the If-Match header.
	IfMatch string `json:"if_match,omitempty" example:"3f7a..."`
}

// Validate checks the request against the operation it is sent to.
func (r *OperationRequest) Validate(op tasks.Operation) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Mark, validation.When(op != tasks.OpMark || r.Mark != tasks.MarkRemoveCheckbox,
			validation.RuneLength(0, 1).Error("mark must be a single character"))),
		validation.Field(&r.Selection, validation.When(op == tasks.OpMark, validation.NotNil.Error("selection is required for mark"))),
	)
}

// TransformRequest is the body of POST /transform.
type TransformRequest struct {
	Operation string           `json:"operation" example:"move-completed"`
	Text      string           `json:"text"`
	Mark      string           `json:"mark,omitempty" example:"x"`
	Selection *tasks.Selection `json:"selection,omitempty"`
}

// Validate checks the request.
func (r *TransformRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Operation, validation.Required, validation.In(
			string(tasks.OpCompleteAll), string(tasks.OpResetAll), string(tasks.OpMoveCompleted), string(tasks.OpMark))),
		validation.Field(&r.Selection, validation.When(r.Operation == string(tasks.OpMark), validation.NotNil.Error("selection is required for mark"))),
	)
}

// TransformResponse is returned by POST /transform.
type TransformResponse struct {
	Text      string           `json:"text"`
	Selection *tasks.Selection `json:"selection,omitempty"`
	Changed   bool             `json:"changed"`
}

// DocumentListResponse wraps GET /documents.
type DocumentListResponse struct {
	Documents []index.DocumentRow `json:"documents"`
}

// TaskListResponse wraps GET /tasks.
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks"`
}

// ApplyResponse is returned by document operations.
type ApplyResponse = collector.ApplyResult

// taskQuery mirrors the GET /tasks query string.
type taskQuery struct {
	State string
	Limit int
}

func (q *taskQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.State, validation.In("incomplete", "complete", "canceled", "unrecognized")),
		validation.Field(&q.Limit, validation.Min(0), validation.Max(maxTaskLimit)),
	)
}

// settingsBody is the body of PUT /settings.
type settingsBody struct {
	tasks.Settings
}

func (b *settingsBody) Validate() error {
	return validation.ValidateStruct(&b.Settings,
		validation.Field(&b.Settings.IncompleteTaskValues, validation.RuneLength(0, 64)),
		validation.Field(&b.Settings.CompletedAreaHeader, validation.RuneLength(0, 200)),
		validation.Field(&b.Settings.AppendDateFormat, validation.RuneLength(0, 100)),
		validation.Field(&b.Settings.RemoveExpression, validation.RuneLength(0, 1000)),
	)
}
