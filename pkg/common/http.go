// Package common holds the request and response helpers shared by the admin API handlers.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

// ErrorResponse is the body of every failed admin API call
type ErrorResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Candidate interface{} `json:"candidate,omitempty"`
}

// PagedResponse is the body of every listing
type PagedResponse[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
	PageSize   int `json:"pageSize"`
}

// ToPagedResponse maps a paged list to its response body
func ToPagedResponse[T, U any](list paging.PagedList[T], fn func(T) U) PagedResponse[U] {
	mapped := paging.Map(list, fn)
	return PagedResponse[U]{Data: mapped.Data, TotalCount: mapped.TotalCount, PageSize: mapped.PageSize}
}

// PageParams reads the search, page and pageSize query parameters
func PageParams(r *http.Request) (search string, page, pageSize int) {
	q := r.URL.Query()
	search = q.Get("search")
	page, _ = strconv.Atoi(q.Get("page"))
	pageSize, _ = strconv.Atoi(q.Get("pageSize"))
	page, pageSize = paging.Normalize(page, pageSize)
	return search, page, pageSize
}

// LimitParam reads the limit query parameter used by lookups, 0 when absent
func LimitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// BoolParam reads a boolean query parameter, false when absent or invalid
func BoolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// IntURLParam reads a numeric route parameter
func IntURLParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(name, fmt.Sprintf("%q is not a number", raw))
	}
	return id, nil
}

// UUIDURLParam reads a uuid route parameter
func UUIDURLParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput(name, fmt.Sprintf("%q is not a valid id", raw))
	}
	return id, nil
}

// DecodeJSON decodes the request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body")
	}
	return nil
}

// RenderJSON writes v with status
func RenderJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// RenderConflict writes a 409 carrying the rejected candidate
func RenderConflict(w http.ResponseWriter, r *http.Request, code apperrors.ErrorCode, message string, candidate interface{}) {
	RenderJSON(w, r, http.StatusConflict, ErrorResponse{
		Code:      string(code),
		Message:   message,
		Candidate: candidate,
	})
}

// RenderError maps err to a status and body. Conflicts not handled by the
// caller are written with their domain candidate.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	if conflict, ok := apperrors.AsConflictPayload(err); ok {
		RenderConflict(w, r, conflict.ConflictCode(), conflict.ConflictMessage(), conflict.ConflictCandidate())
		return
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		slog.Error("Admin API request failed", "method", r.Method, "uri", r.RequestURI, "err", err)
		RenderJSON(w, r, http.StatusInternalServerError, ErrorResponse{
			Code:    string(apperrors.ErrCodeInternal),
			Message: "An internal error occurred",
		})
		return
	}

	status := appErr.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		slog.Error("Admin API request failed", "method", r.Method, "uri", r.RequestURI, "err", err)
	}
	RenderJSON(w, r, status, ErrorResponse{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// RenderDeleted answers a delete: 404 when the row was missing, 204 otherwise
func RenderDeleted(w http.ResponseWriter, r *http.Request, affected int, code apperrors.ErrorCode, message string) {
	if affected == utils.RowNotFound {
		RenderJSON(w, r, http.StatusNotFound, ErrorResponse{Code: string(code), Message: message})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
