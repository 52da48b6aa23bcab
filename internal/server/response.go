package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"reqsender/internal/logger"
)

var validate = validator.New()

// APIResponse is the standard success response shape.
type APIResponse struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

// APIError is the standard error response shape.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

// OK sends a 200 response with data.
func OK(w http.ResponseWriter, r *http.Request, data any, message string) {
	writeJSON(w, http.StatusOK, APIResponse{Data: data, Status: http.StatusOK, Message: message, Path: r.URL.Path})
}

// Created sends a 201 response with data.
func Created(w http.ResponseWriter, r *http.Request, data any, message string) {
	writeJSON(w, http.StatusCreated, APIResponse{Data: data, Status: http.StatusCreated, Message: message, Path: r.URL.Path})
}

// Error sends a JSON error response using APIError.
func Error(w http.ResponseWriter, r *http.Request, status int, message, errDetail string) {
	writeJSON(w, status, APIError{Message: message, Error: errDetail, Path: r.URL.Path, Status: status})
}

// BadRequest sends 400 with message and error detail.
func BadRequest(w http.ResponseWriter, r *http.Request, message, errDetail string) {
	Error(w, r, http.StatusBadRequest, message, errDetail)
}

// NotFound sends 404 with message and error detail.
func NotFound(w http.ResponseWriter, r *http.Request, message, errDetail string) {
	Error(w, r, http.StatusNotFound, message, errDetail)
}

// InternalError sends 500 with message and error detail.
func InternalError(w http.ResponseWriter, r *http.Request, message, errDetail string) {
	logger.Error("%s %s: %s: %s", r.Method, r.URL.Path, message, errDetail)
	Error(w, r, http.StatusInternalServerError, message, errDetail)
}

// decodeJSON decodes the request body into v and validates its struct tags
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}
