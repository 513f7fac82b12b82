package models

type User struct {
	ID           int     `json:"-"`
	Username     string  `json:"username"`
	FirstName    *string `json:"firstname"`
	LastName     *string `json:"lastname"`
	MailID       *string `json:"mailid"`
	Phone        *string `json:"phone"`
	PasswordHash string  `json:"-"`
	UserType     *int    `json:"-"`
}

const (
	UserTypeRegular = 0
	UserTypeAdmin   = 1
)

func (u *User) IsAdmin() bool {
	return u.UserType != nil && *u.UserType == UserTypeAdmin
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type RegisterRequest struct {
	FirstName string `json:"firstname" validate:"required"`
	LastName  string `json:"lastname"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	MailID    string `json:"mailid" validate:"required"`
	Phone     string `json:"phone"`
	UserType  int    `json:"-"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
