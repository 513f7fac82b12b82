package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bookstore/internal/db"
	"bookstore/internal/errs"
	"bookstore/internal/events"
	"bookstore/internal/metrics"
	"bookstore/internal/models"
	"bookstore/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

const booksTable = "books"

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Upload is the image part of an add-book form.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

type BookService struct {
	db        *sql.DB
	store     storage.ArtifactStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewBookService(db *sql.DB, store storage.ArtifactStore, publisher events.Publisher, m *metrics.Metrics, logger zerolog.Logger) *BookService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &BookService{
		db:        db,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *BookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	query, args, err := qb.Select("barcode", "name", "author", "price", "quantity", "image_url").
		From(booksTable).
		ToSql()
	if err != nil {
		return nil, errs.Internal("Failed to retrieve data.", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching books")
		return nil, errs.Internal("Failed to retrieve data.", err)
	}
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		var b models.Book
		var imageURL sql.NullString
		if err := rows.Scan(&b.Barcode, &b.Name, &b.Author, &b.Price, &b.Quantity, &imageURL); err != nil {
			return nil, errs.Internal("Failed to retrieve data.", err)
		}
		if imageURL.Valid {
			b.ImageURL = &imageURL.String
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Error iterating books")
		return nil, errs.Internal("Failed to retrieve data.", err)
	}
	return books, nil
}

// AddBook validates the form, stores the image and inserts the row. The
// image is stored first; if the insert fails it is deleted again.
func (s *BookService) AddBook(ctx context.Context, req *models.AddBookRequest, upload *Upload) (*models.Book, error) {
	if upload == nil {
		return nil, errs.Validation("missing_image", "No image file part in the request.")
	}
	if upload.Filename == "" {
		return nil, errs.Validation("empty_filename", "No selected file.")
	}

	barcode := strings.TrimSpace(req.Barcode)
	name := strings.TrimSpace(req.Name)
	author := strings.TrimSpace(req.Author)
	if barcode == "" || name == "" || author == "" || strings.TrimSpace(req.Price) == "" || strings.TrimSpace(req.Quantity) == "" {
		return nil, errs.Validation("missing_fields", "Missing form data. All fields are required.")
	}
	if !storage.AllowedFile(upload.Filename) {
		return nil, errs.Validation("invalid_file_type", "Invalid file type. Allowed types are png, jpg, jpeg, gif, webp.")
	}

	price, err := parseColumnInt(req.Price)
	if err != nil || price < 0 {
		return nil, errs.Validation("invalid_price", "Price must be a non-negative integer.")
	}
	quantity, err := parseColumnInt(req.Quantity)
	if err != nil || quantity < 0 {
		return nil, errs.Validation("invalid_quantity", "Quantity must be a non-negative integer.")
	}

	ref, err := s.store.Save(ctx, storage.ObjectName(upload.Filename), upload.Reader, upload.Size)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", upload.Filename).Msg("Error storing image")
		return nil, errs.Internal("Failed to store the image.", err)
	}

	book := &models.Book{
		Barcode:  barcode,
		Name:     name,
		Author:   author,
		Price:    price,
		Quantity: quantity,
		ImageURL: &ref,
	}

	query, args, err := qb.Insert(booksTable).
		Columns("barcode", "name", "author", "price", "quantity", "image_url").
		Values(book.Barcode, book.Name, book.Author, book.Price, book.Quantity, ref).
		ToSql()
	if err == nil {
		_, err = s.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		s.discardArtifact(ctx, ref)
		if _, dup := duplicateKey(err); dup {
			return nil, errs.Conflict("duplicate_barcode", fmt.Sprintf("Error: Barcode '%s' already exists.", barcode))
		}
		s.logger.Error().Err(err).Str("barcode", barcode).Msg("Error inserting book")
		return nil, errs.Internal("A database error occurred.", err)
	}

	s.logger.Info().Str("barcode", barcode).Str("image_url", ref).Msg("Book added")
	return book, nil
}

// RemoveBook deletes the book and then its image.
func (s *BookService) RemoveBook(ctx context.Context, barcode string) error {
	if barcode == "" {
		return errs.Validation("missing_barcode", "Barcode is required.")
	}

	var imageURL sql.NullString
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query, args, err := qb.Select("image_url").
			From(booksTable).
			Where(sq.Eq{"barcode": barcode}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&imageURL); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return bookNotFound(barcode)
			}
			return err
		}

		query, args, err = qb.Delete(booksTable).Where(sq.Eq{"barcode": barcode}).ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return bookNotFound(barcode)
		}
		return nil
	})
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return err
		}
		s.logger.Error().Err(err).Str("barcode", barcode).Msg("Error removing book")
		return errs.Internal("A database error occurred.", err)
	}

	if imageURL.Valid && imageURL.String != "" {
		s.discardArtifact(ctx, imageURL.String)
	}
	s.logger.Info().Str("barcode", barcode).Msg("Book removed")
	return nil
}

// Purchase decrements stock for every requested item inside one
// transaction. Items are locked and checked in the order given; the first
// failing item aborts the whole purchase and nothing is decremented.
func (s *BookService) Purchase(ctx context.Context, req *models.PurchaseRequest) error {
	if req == nil || len(req.Items) == 0 {
		s.metrics.PurchaseOutcome("invalid_request")
		return errs.Validation("missing_items", "No items to purchase.")
	}

	purchased := make([]models.PurchasedItem, 0, len(req.Items))
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, item := range req.Items {
			want, err := item.Quantity.Int()
			if err != nil || want <= 0 {
				return errs.Validation("invalid_quantity", "Invalid quantity provided.")
			}

			name, available, err := lockStock(ctx, tx, item.Barcode)
			if errors.Is(err, sql.ErrNoRows) {
				return bookNotFound(item.Barcode)
			}
			if err != nil {
				return fmt.Errorf("lock stock for %q: %w", item.Barcode, err)
			}
			if available < want {
				return errs.InsufficientStock(fmt.Sprintf("Not enough stock for '%s'.", name))
			}

			query, args, err := qb.Update(booksTable).
				Set("quantity", sq.Expr("quantity - ?", want)).
				Where(sq.Eq{"barcode": item.Barcode}).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("decrement stock for %q: %w", item.Barcode, err)
			}
			purchased = append(purchased, models.PurchasedItem{
				Barcode:   item.Barcode,
				Quantity:  want,
				Remaining: available - want,
			})
		}
		return nil
	})
	if err != nil {
		s.metrics.PurchaseOutcome(purchaseOutcome(err))
		var e *errs.Error
		if errors.As(err, &e) {
			s.logger.Info().Str("reason", e.Code).Msg("Purchase rejected")
			return err
		}
		s.logger.Error().Err(err).Msg("Purchase transaction failed")
		return errs.Internal("A database error occurred.", err)
	}
	s.metrics.PurchaseOutcome("committed")

	event := models.PurchaseEvent{Items: purchased, OccurredAt: time.Now().Unix()}
	if err := s.publisher.PurchaseCompleted(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish purchase event")
	}
	s.logger.Info().Int("items", len(purchased)).Msg("Purchase committed")
	return nil
}

func lockStock(ctx context.Context, tx *sql.Tx, barcode string) (string, int, error) {
	query, args, err := qb.Select("name", "quantity").
		From(booksTable).
		Where(sq.Eq{"barcode": barcode}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", 0, err
	}
	var name string
	var quantity int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&name, &quantity)
	return name, quantity, err
}

func purchaseOutcome(err error) string {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return "not_found"
	case errs.KindInsufficientStock:
		return "insufficient_stock"
	case errs.KindValidation:
		return "invalid_quantity"
	default:
		return "error"
	}
}

func bookNotFound(barcode string) *errs.Error {
	return errs.NotFound("book_not_found", fmt.Sprintf("Book with barcode '%s' not found.", barcode))
}

// discardArtifact removes an image that no row references. Failures are
// logged only; the caller has already decided the outcome.
func (s *BookService) discardArtifact(ctx context.Context, ref string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn().Err(err).Str("image_url", ref).Msg("Failed to delete image")
	}
}

// parseColumnInt parses s as a value that fits the signed INT columns.
func parseColumnInt(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return int(n), err
}
