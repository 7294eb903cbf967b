package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taskcollector/internal/collector"
	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/tasks"
)

// Handler holds API route handlers.
type Handler struct {
	svc *collector.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *collector.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the wildcard path after /documents/. Encoded
// slashes (plans%2Fweek.md) are accepted.
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// splitOperation splits "dir/doc.md/move-completed" into the document path
// and the operation.
func splitOperation(p string) (string, tasks.Operation, error) {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "", "", errors.New("path must end with an operation")
	}
	op, err := tasks.ParseOperation(p[i+1:])
	if err != nil {
		return "", "", err
	}
	return p[:i], op, nil
}

// ifMatch returns the body precondition, or the If-Match header without
// ETag quotes.
func ifMatch(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List indexed documents with task counts
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a document with its tasks
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	models.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// ApplyOperation handles POST /api/documents/{path}/{operation}.
//
//	@Summary		Run a task operation on a stored document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Document path"
//	@Param			operation	path		string				true	"Operation"	Enums(complete-all, reset-all, move-completed, mark)
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		OperationRequest	false	"Mark, selection and precondition"
//	@Success		200			{object}	ApplyResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path}/{operation} [post]
func (h *Handler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	path, op, err := splitOperation(documentPath(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var req OperationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(op); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	treq := tasks.Request{Op: op, Mark: req.Mark}
	if req.Selection != nil {
		treq.Selection = *req.Selection
	}

	res, err := h.svc.Apply(r.Context(), path, treq, ifMatch(r, req.IfMatch))
	if err != nil {
		writeError(w, "apply "+string(op), err)
		return
	}
	w.Header().Set("ETag", `"`+res.Document.Checksum+`"`)
	writeJSON(w, http.StatusOK, res)
}

// Transform handles POST /api/transform.
//
//	@Summary		Apply a task operation to posted text
//	@Tags			transform
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TransformRequest	true	"Operation and text"
//	@Success		200		{object}	TransformResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transform [post]
func (h *Handler) Transform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	treq := tasks.Request{Op: tasks.Operation(req.Operation), Mark: req.Mark}
	if req.Selection != nil {
		treq.Selection = *req.Selection
	}
	res, err := h.svc.Transform(r.Context(), req.Text, treq)
	if err != nil {
		writeError(w, "transform", err)
		return
	}
	writeJSON(w, http.StatusOK, TransformResponse{Text: res.Document, Selection: res.Selection, Changed: res.Changed})
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		Query the task index
//	@Tags			tasks
//	@Produce		json
//	@Param			state	query		string	false	"Task state"	Enums(incomplete, complete, canceled, unrecognized)
//	@Param			q		query		string	false	"Text search"
//	@Param			path	query		string	false	"Document path"
//	@Param			tag		query		string	false	"Tag without #"
//	@Param			in_log	query		bool	false	"Inside (true) or outside (false) the log section"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	TaskListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	tq := taskQuery{State: q.Get("state"), Limit: limit}
	if err := tq.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	query := index.TaskQuery{
		State: tq.State,
		Path:  q.Get("path"),
		Tag:   strings.TrimPrefix(q.Get("tag"), "#"),
		Text:  strings.TrimSpace(q.Get("q")),
		Limit: tq.Limit,
	}
	if raw := q.Get("in_log"); raw != "" {
		inLog, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("in_log must be a boolean"))
			return
		}
		query.InLog = &inLog
	}

	list, err := h.svc.ListTasks(r.Context(), query)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: list})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the live task settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	tasks.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings. The body replaces the whole
// settings set; rejected settings leave the previous set live.
//
//	@Summary		Replace the task settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		tasks.Settings	true	"New settings"
//	@Success		200		{object}	tasks.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	live, err := h.svc.UpdateSettings(r.Context(), body.Settings)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}
