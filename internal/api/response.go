package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/campuslost/lostfound/internal/service"
	"github.com/campuslost/lostfound/internal/store"
)

// Pagination defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// envelope is the body of every JSON response.
type envelope struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Data        any    `json:"data,omitempty"`
	Count       *int   `json:"count,omitempty"`
	Total       *int   `json:"total,omitempty"`
	Page        *int   `json:"page,omitempty"`
	TotalPages  *int   `json:"totalPages,omitempty"`
	UnreadCount *int   `json:"unreadCount,omitempty"`
	Error       string `json:"error,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// ok writes a successful envelope.
func ok(w http.ResponseWriter, status int, message string, data any) {
	jsonResponse(w, status, envelope{Success: true, Message: message, Data: data})
}

// okList writes a successful envelope carrying a list and its length.
func okList[T any](w http.ResponseWriter, list []T) {
	if list == nil {
		list = []T{}
	}
	n := len(list)
	jsonResponse(w, http.StatusOK, envelope{Success: true, Data: list, Count: &n})
}

// jsonError writes a failed envelope.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, envelope{Success: false, Message: message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// pagination is the page/limit pair of a list request.
type pagination struct {
	page, limit int
}

func parsePagination(r *http.Request) pagination {
	q := r.URL.Query()
	p := pagination{page: 1, limit: DefaultPageSize}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.limit = min(n, MaxPageSize)
	}
	return p
}

func (p pagination) store() store.Page {
	return store.Page{Limit: p.limit, Offset: (p.page - 1) * p.limit}
}

// okPage writes one page of a paginated list.
func okPage[T any](w http.ResponseWriter, list []T, total int, p pagination) {
	if list == nil {
		list = []T{}
	}
	n := len(list)
	pages := (total + p.limit - 1) / p.limit
	jsonResponse(w, http.StatusOK, envelope{
		Success:    true,
		Data:       list,
		Count:      &n,
		Total:      &total,
		Page:       &p.page,
		TotalPages: &pages,
	})
}

// errorWriter maps service errors to HTTP statuses.
type errorWriter struct {
	logger *slog.Logger
	debug  bool
}

func (e *errorWriter) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}

	if status != http.StatusInternalServerError {
		jsonError(w, status, service.Message(err))
		return
	}

	e.logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method, "path", r.URL.Path, "request_id", w.Header().Get(requestIDHeader), "error", err)
	body := envelope{Success: false, Message: "server error"}
	if e.debug {
		body.Error = err.Error()
	}
	jsonResponse(w, status, body)
}
