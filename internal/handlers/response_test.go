package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookstore/internal/errs"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{
			name: "classified",
			err:  errs.NotFound("book_not_found", "Book with barcode 'x' not found."),
			code: http.StatusNotFound,
			body: `{"error":"book_not_found","message":"Book with barcode 'x' not found."}`,
		},
		{
			name: "internal keeps its message but not the cause",
			err:  errs.Internal("A database error occurred during login.", errors.New("dial tcp 10.0.0.3:3306: refused")),
			code: http.StatusInternalServerError,
			body: `{"error":"internal_error","message":"A database error occurred during login."}`,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			code: http.StatusInternalServerError,
			body: `{"error":"internal_error","message":"A database error occurred."}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			serviceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), zerolog.Nop(), tt.err)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health("Catalog")(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Catalog API server is running."}`, rec.Body.String())
}
