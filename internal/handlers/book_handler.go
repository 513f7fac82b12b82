package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookstore/internal/middleware"
	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
)

// Form parts above this size are spooled to temporary files.
const multipartMemory = 8 << 20

type BookHandler struct {
	bookService    *services.BookService
	maxUploadBytes int64
	logger         zerolog.Logger
}

func NewBookHandler(bookService *services.BookService, maxUploadBytes int64, logger zerolog.Logger) *BookHandler {
	return &BookHandler{
		bookService:    bookService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *BookHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		serviceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, books)
}

func (h *BookHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	var upload *services.Upload
	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case err == nil:
		defer r.MultipartForm.RemoveAll()
		file, header, ferr := r.FormFile("image")
		if ferr == nil {
			defer file.Close()
			upload = &services.Upload{Filename: header.Filename, Size: header.Size, Reader: file}
		} else if errors.Is(ferr, http.ErrMissingFile) {
			// A file input left empty arrives as a part with filename="".
			if _, ok := r.MultipartForm.Value["image"]; ok {
				upload = &services.Upload{Reader: strings.NewReader("")}
			}
		} else {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form.")
			return
		}
	case errors.Is(err, http.ErrNotMultipart):
		// Treated like a form without an image part.
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusBadRequest, "file_too_large", fmt.Sprintf("Upload exceeds %d bytes.", tooLarge.Limit))
			return
		}
		h.logger.Warn().Err(err).Msg("Failed to parse add book form")
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form.")
		return
	}

	req := models.AddBookRequest{
		Barcode:  r.FormValue("barcode"),
		Name:     r.FormValue("name"),
		Author:   r.FormValue("author"),
		Price:    r.FormValue("price"),
		Quantity: r.FormValue("quantity"),
	}

	book, err := h.bookService.AddBook(r.Context(), &req, upload)
	if err != nil {
		serviceError(w, r, h.logger, err)
		return
	}
	h.audit(r, "add", book.Barcode)
	respondWithMessage(w, http.StatusCreated, fmt.Sprintf("Book '%s' added successfully.", book.Name))
}

func (h *BookHandler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	var req models.RemoveBookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body.")
		return
	}

	if err := h.bookService.RemoveBook(r.Context(), req.Barcode); err != nil {
		serviceError(w, r, h.logger, err)
		return
	}
	h.audit(r, "remove", req.Barcode)
	respondWithMessage(w, http.StatusOK, fmt.Sprintf("Book with barcode '%s' was removed.", req.Barcode))
}

func (h *BookHandler) BuyBooks(w http.ResponseWriter, r *http.Request) {
	var req models.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body.")
		return
	}

	if err := h.bookService.Purchase(r.Context(), &req); err != nil {
		serviceError(w, r, h.logger, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "Purchase successful!")
}

// audit records catalog changes made under an admin token.
func (h *BookHandler) audit(r *http.Request, action, barcode string) {
	if who, ok := middleware.GetUsername(r); ok {
		h.logger.Info().Str("admin", who).Str("action", action).Str("barcode", barcode).Msg("Catalog changed")
	}
}
