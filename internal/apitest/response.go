package apitest

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/evently/pkg/types"
)

// envelope builds the standard response wrapper around data.
func envelope(status int, message string, data any) types.Envelope {
	env := types.Envelope{
		Success:    status < http.StatusBadRequest,
		StatusCode: status,
		Message:    message,
	}
	if data != nil {
		// Encoding errors are ignored; fixtures are plain structs.
		env.Data, _ = json.Marshal(data)
	}
	return env
}

// JSON writes an envelope with the given status code.
func JSON(w http.ResponseWriter, status int, env types.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope(http.StatusOK, "Success", data))
}

// Created writes a successful response with 201 status.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, envelope(http.StatusCreated, "Created", data))
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, envelope(status, message, nil))
}

// Invalid writes a 422 envelope with field-level messages.
func Invalid(w http.ResponseWriter, fields map[string][]string) {
	env := envelope(http.StatusUnprocessableEntity, "Validation failed", nil)
	env.Errors = fields
	JSON(w, http.StatusUnprocessableEntity, env)
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter) {
	Fail(w, http.StatusUnauthorized, "Unauthorized")
}

// Forbidden writes a 403 error response.
func Forbidden(w http.ResponseWriter) {
	Fail(w, http.StatusForbidden, "Forbidden")
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, what string) {
	Fail(w, http.StatusNotFound, what+" not found")
}

func paged[T any](items []T, page, limit int) ([]T, *types.PaginationMeta) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	pages := max((total+limit-1)/limit, 1)
	return items[start:end], &types.PaginationMeta{
		Total:       total,
		Page:        page,
		Limit:       limit,
		Skip:        start,
		TotalPages:  pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
