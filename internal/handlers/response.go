package handlers

import (
	"encoding/json"
	"net/http"

	"bookstore/internal/errs"
	"bookstore/internal/middleware"
	"bookstore/internal/models"

	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health answers liveness probes for a service.
func Health(service string) http.HandlerFunc {
	body := HealthResponse{Status: "ok", Message: service + " API server is running."}
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, body)
	}
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound, "not_found", "The requested resource was not found.")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed.")
}

func respondWithMessage(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, models.MessageResponse{Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: errorCode, Message: message})
}

// respondWithServiceError writes a classified service error. Internal
// causes are never exposed.
func respondWithServiceError(w http.ResponseWriter, err error) {
	code, message := errs.Public(err)
	respondWithError(w, errs.HTTPStatus(err), code, message)
}

// serviceError logs unclassified failures with the request id and writes
// the error response.
func serviceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	if errs.KindOf(err) == errs.KindInternal {
		logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r)).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	respondWithServiceError(w, err)
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
