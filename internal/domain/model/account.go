package model

import (
	"errors"
	"strings"
	"time"
)

// Account is a registered client or worker identity. Immutable after
// registration except for the kudos score.
type Account struct {
	Username       string    `json:"username"        db:"username"`
	APIKey         string    `json:"-"               db:"api_key"`
	Kudos          int       `json:"kudos"           db:"kudos"`
	RegisteredFrom string    `json:"registered_from" db:"registered_from"`
	IsAdmin        bool      `json:"is_admin"        db:"is_admin"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
}

// CreateAccountRequest represents a registration request.
type CreateAccountRequest struct {
	Username       string `json:"username"`
	RegisteredFrom string `json:"-"`
}

// usernameMaxLen bounds usernames to the column width.
const usernameMaxLen = 80

// Validate validates the CreateAccountRequest fields.
func (r *CreateAccountRequest) Validate() error {
	name := strings.TrimSpace(r.Username)
	if name == "" {
		return errors.New("username is required")
	}
	if len(name) > usernameMaxLen {
		return errors.New("username too long")
	}
	if strings.ContainsAny(name, " \t\n") {
		return errors.New("username must not contain whitespace")
	}
	return nil
}
