package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore/internal/errs"
	"bookstore/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const usersTable = "users"

// Duplicate-key messages in the order they are checked.
var uniqueConstraints = []struct {
	key     string
	code    string
	message string
}{
	{"uq_users_username", "duplicate_username", "This username is already taken."},
	{"uq_users_mailid", "duplicate_mailid", "This email is already registered."},
	{"uq_users_phone", "duplicate_phone", "This phone number is already registered."},
}

// bcrypt rejects longer passwords.
const maxPasswordBytes = 72

const (
	msgInvalidLogin = "Invalid username or password."
	msgInvalidAdmin = "Invalid admin credentials, access denied."
)

// dummyHash is compared against when no account matches so a missing user
// costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookstore-dummy-password"), bcrypt.DefaultCost)

type UserService struct {
	db       *sql.DB
	validate *validator.Validate
	cost     int
	logger   zerolog.Logger
}

func NewUserService(db *sql.DB, logger zerolog.Logger) *UserService {
	return &UserService{
		db:       db,
		validate: validator.New(),
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// ListUsers returns every account that is not an administrator.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := qb.Select("username", "firstname", "lastname", "mailid", "phone").
		From(usersTable).
		Where(sq.Or{sq.Eq{"usertype": nil}, sq.NotEq{"usertype": models.UserTypeAdmin}}).
		ToSql()
	if err != nil {
		return nil, errs.Internal("A database error occurred while fetching users.", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching users")
		return nil, errs.Internal("A database error occurred while fetching users.", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		var first, last, mail, phone sql.NullString
		if err := rows.Scan(&u.Username, &first, &last, &mail, &phone); err != nil {
			return nil, errs.Internal("A database error occurred while fetching users.", err)
		}
		u.FirstName = nullable(first)
		u.LastName = nullable(last)
		u.MailID = nullable(mail)
		u.Phone = nullable(phone)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("A database error occurred while fetching users.", err)
	}
	return users, nil
}

// Register stores a new account with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return errs.Validation("missing_fields", "Missing required fields.")
	}
	if len(req.Password) > maxPasswordBytes {
		return errs.Validation("password_too_long", fmt.Sprintf("Password must be at most %d bytes.", maxPasswordBytes))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return errs.Internal("A database error occurred during registration.", err)
	}

	query, args, err := qb.Insert(usersTable).
		Columns("firstname", "lastname", "username", "password", "mailid", "phone", "usertype").
		Values(req.FirstName, nullString(req.LastName), req.Username, string(hashedPassword), req.MailID, nullString(req.Phone), req.UserType).
		ToSql()
	if err == nil {
		_, err = s.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		if key, dup := duplicateKey(err); dup {
			for _, c := range uniqueConstraints {
				if key == c.key {
					return errs.Conflict(c.code, c.message)
				}
			}
		}
		s.logger.Error().Err(err).Str("username", req.Username).Msg("Error creating user")
		return errs.Internal("A database error occurred during registration.", err)
	}

	s.logger.Info().Str("username", req.Username).Msg("User registered successfully")
	return nil
}

// Authenticate checks username and password. With adminOnly set the lookup
// only matches administrator accounts. Every mismatch yields the same
// authentication error.
func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest, adminOnly bool) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errs.Validation("missing_credentials", "Username and password are required.")
	}

	invalid := msgInvalidLogin
	where := sq.And{sq.Eq{"username": req.Username}}
	if adminOnly {
		invalid = msgInvalidAdmin
		where = append(where, sq.Eq{"usertype": models.UserTypeAdmin})
	}

	query, args, err := qb.Select("id", "username", "password", "usertype").
		From(usersTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, errs.Internal("A database error occurred during login.", err)
	}

	var user models.User
	var userType sql.NullInt64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Username, &user.PasswordHash, &userType)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		s.logger.Warn().Str("username", req.Username).Bool("admin", adminOnly).Msg("Failed authentication attempt")
		return nil, errs.Authentication(invalid)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error querying user")
		return nil, errs.Internal("A database error occurred during login.", err)
	}
	if userType.Valid {
		t := int(userType.Int64)
		user.UserType = &t
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("username", req.Username).Bool("admin", adminOnly).Msg("Failed authentication attempt")
		return nil, errs.Authentication(invalid)
	}

	s.logger.Info().Int("user_id", user.ID).Bool("admin", adminOnly).Msg("User authenticated successfully")
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
