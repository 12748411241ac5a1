// Package accountdb owns accounts and bearer sessions.
// It is the only place that reads or writes credential material.
package accountdb

import (
	"errors"
	"strings"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// User-visible error strings are stable, clients match on them.
var (
	ErrInvalidToken            = errors.New("invalid-token")
	ErrInvalidEmailAndPassword = errors.New("invalid-email-and-password")
	ErrAccountNotFound         = errors.New("account-not-found")
	ErrEmailNotVerified        = errors.New("email-not-verified")
	ErrEmailExists             = errors.New("email-already-exists")
	ErrVerificationNotFound    = errors.New("verification token not found")
)

type AccountDB struct {
	Log logs.Log
	DB  *gorm.DB

	// Process-wide salt of the legacy password hash format
	legacySalt string
	// HMAC key under which bearer tokens are stored
	tokenSecret string
}

func NewAccountDB(log logs.Log, db *gorm.DB, legacySalt, tokenSecret string) *AccountDB {
	return &AccountDB{
		Log:         log,
		DB:          db,
		legacySalt:  legacySalt,
		tokenSecret: tokenSecret,
	}
}

// Account is a row in the account table.
type Account struct {
	ID                int64       `gorm:"primaryKey" json:"id"`
	Email             string      `json:"email"`
	Login             string      `json:"login"`
	Password          string      `json:"-"`
	EmailVerified     bool        `json:"emailVerified"`
	VerificationToken string      `json:"-"` // empty once verified
	TokenHash         string      `json:"-"` // HMAC of the active bearer token, empty if none
	TokenExpiresAt    dbh.IntTime `json:"-"`
	CreatedAt         dbh.IntTime `json:"createdAt"`
	UpdatedAt         dbh.IntTime `json:"updatedAt"`
}

// IsUniqueViolation recognizes unique constraint errors from both Postgres
// and Sqlite (tests run on Sqlite).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
