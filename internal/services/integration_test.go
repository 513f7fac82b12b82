package services

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"

	"bookstore/internal/db"
	"bookstore/internal/errs"
	"bookstore/internal/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// openTestDB connects to the MySQL named by BOOKSTORE_TEST_DSN and resets
// both tables. The test is skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("BOOKSTORE_TEST_DSN")
	if dsn == "" {
		t.Skip("BOOKSTORE_TEST_DSN not set")
	}
	conn, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn, zerolog.Nop()))
	// Running again must be a no-op.
	require.NoError(t, db.RunMigrations(conn, zerolog.Nop()))

	for _, table := range []string{"books", "users"} {
		_, err := conn.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
	return conn
}

func seedBook(t *testing.T, conn *sql.DB, barcode, name string, qty int) {
	t.Helper()
	_, err := conn.Exec("INSERT INTO books (barcode, name, author, price, quantity) VALUES (?, ?, 'Author', 100, ?)", barcode, name, qty)
	require.NoError(t, err)
}

func stockOf(t *testing.T, conn *sql.DB, barcode string) int {
	t.Helper()
	var qty int
	require.NoError(t, conn.QueryRow("SELECT quantity FROM books WHERE barcode = ?", barcode).Scan(&qty))
	return qty
}

func TestIntegration_AddListRemove(t *testing.T) {
	conn := openTestDB(t)
	svc := NewBookService(conn, newMemStore(), nil, nil, zerolog.Nop())
	ctx := context.Background()

	req := &models.AddBookRequest{Barcode: "978-1", Name: "Dune", Author: "Frank Herbert", Price: "1299", Quantity: "3"}
	_, err := svc.AddBook(ctx, req, &Upload{Filename: "dune.png", Reader: strings.NewReader("x")})
	require.NoError(t, err)

	_, err = svc.AddBook(ctx, req, &Upload{Filename: "dune.png", Reader: strings.NewReader("x")})
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 1299, books[0].Price)
	require.NotNil(t, books[0].ImageURL)

	require.NoError(t, svc.RemoveBook(ctx, "978-1"))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(svc.RemoveBook(ctx, "978-1")))
}

func TestIntegration_PurchaseIsAllOrNothing(t *testing.T) {
	conn := openTestDB(t)
	svc := NewBookService(conn, newMemStore(), nil, nil, zerolog.Nop())
	seedBook(t, conn, "A", "Dune", 5)
	seedBook(t, conn, "B", "Emma", 1)

	err := svc.Purchase(context.Background(), purchase(item("A", "2"), item("B", "3")))
	assert.Equal(t, errs.KindInsufficientStock, errs.KindOf(err))
	assert.Equal(t, 5, stockOf(t, conn, "A"))
	assert.Equal(t, 1, stockOf(t, conn, "B"))

	err = svc.Purchase(context.Background(), purchase(item("A", "2"), item("missing", "1")))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Equal(t, 5, stockOf(t, conn, "A"))

	require.NoError(t, svc.Purchase(context.Background(), purchase(item("A", "2"), item("B", "1"))))
	assert.Equal(t, 3, stockOf(t, conn, "A"))
	assert.Equal(t, 0, stockOf(t, conn, "B"))
}

func TestIntegration_ConcurrentPurchasesNeverOversell(t *testing.T) {
	conn := openTestDB(t)
	svc := NewBookService(conn, newMemStore(), nil, nil, zerolog.Nop())
	seedBook(t, conn, "A", "Dune", 10)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Purchase(context.Background(), purchase(item("A", "1")))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.Equal(t, errs.KindInsufficientStock, errs.KindOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, stockOf(t, conn, "A"))
}

func TestIntegration_Accounts(t *testing.T) {
	conn := openTestDB(t)
	svc := NewUserService(conn, zerolog.Nop()).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	ann := &models.RegisterRequest{FirstName: "Ann", Username: "ann", Password: "pw", MailID: "ann@example.com"}
	require.NoError(t, svc.Register(ctx, ann))

	// Empty optional phones are stored as NULL and never collide.
	bob := &models.RegisterRequest{FirstName: "Bob", Username: "bob", Password: "pw", MailID: "bob@example.com"}
	require.NoError(t, svc.Register(ctx, bob))

	dupUser := *ann
	dupUser.MailID = "other@example.com"
	var e *errs.Error
	require.ErrorAs(t, svc.Register(ctx, &dupUser), &e)
	assert.Equal(t, "duplicate_username", e.Code)

	dupMail := *ann
	dupMail.Username = "ann2"
	require.ErrorAs(t, svc.Register(ctx, &dupMail), &e)
	assert.Equal(t, "duplicate_mailid", e.Code)

	withPhone := &models.RegisterRequest{FirstName: "C", Username: "c", Password: "pw", MailID: "c@example.com", Phone: "555"}
	require.NoError(t, svc.Register(ctx, withPhone))
	dupPhone := &models.RegisterRequest{FirstName: "D", Username: "d", Password: "pw", MailID: "d@example.com", Phone: "555"}
	require.ErrorAs(t, svc.Register(ctx, dupPhone), &e)
	assert.Equal(t, "duplicate_phone", e.Code)

	user, err := svc.Authenticate(ctx, &models.LoginRequest{Username: "ann", Password: "pw"}, false)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())

	_, errWrong := svc.Authenticate(ctx, &models.LoginRequest{Username: "ann", Password: "bad"}, false)
	_, errMissing := svc.Authenticate(ctx, &models.LoginRequest{Username: "ghost", Password: "pw"}, false)
	assert.Equal(t, errWrong.Error(), errMissing.Error())

	_, errAdmin := svc.Authenticate(ctx, &models.LoginRequest{Username: "ann", Password: "pw"}, true)
	assert.Equal(t, errs.KindAuthentication, errs.KindOf(errAdmin))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
