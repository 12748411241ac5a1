package accountdb

import (
	"strings"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/google/uuid"

	"github.com/forgeyard/forgeyard/pkg/pwdhash"
	"github.com/forgeyard/forgeyard/pkg/rando"
)

// Generated logins are [a-z][a-z0-9]*, 12 characters.
// They must never contain '-': the first '-' of a canonical repository name
// separates login from project, and git_auth relies on that.
const loginLen = 12

// MinPasswordLen is enforced at signup and at every basic-auth check.
const MinPasswordLen = 8

func generateLogin() string {
	return rando.StrongRandomLowerAlphaChars(1) + rando.StrongRandomLowerAlphaNumChars(loginLen-1)
}

func validateEmailAndPassword(email, password string) error {
	// Deliverability is proven by the verification email, so we only reject
	// obvious garbage here.
	if !strings.Contains(email, "@") || len(password) < MinPasswordLen {
		return ErrInvalidEmailAndPassword
	}
	return nil
}

// CreateAccount creates a new unverified account with a generated login and
// a fresh email verification token.
func (a *AccountDB) CreateAccount(email, password string) (*Account, error) {
	if err := validateEmailAndPassword(email, password); err != nil {
		return nil, err
	}
	now := dbh.MakeIntTime(time.Now().UTC())
	acc := Account{
		Email:             email,
		Login:             generateLogin(),
		Password:          pwdhash.HashPassword(password),
		VerificationToken: uuid.NewString(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := a.DB.Create(&acc).Error; err != nil {
		if IsUniqueViolation(err) {
			a.Log.Warnf("Can not create account, email %v already exists", email)
			return nil, ErrEmailExists
		}
		return nil, err
	}
	a.Log.Infof("Created account, email: %v, login: %v", email, acc.Login)
	return &acc, nil
}

// VerifyEmail flips the single account holding this verification token to
// verified, and clears the token. Verification is terminal: no operation
// ever clears email_verified again.
func (a *AccountDB) VerifyEmail(token string) error {
	if token == "" {
		return ErrVerificationNotFound
	}
	res := a.DB.Model(&Account{}).
		Where("verification_token = ?", token).
		Updates(map[string]any{
			"email_verified":     true,
			"verification_token": "",
			"updated_at":         dbh.MakeIntTime(time.Now().UTC()),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Deliberately silent about whether the token ever existed
		a.Log.Infof("Email not verified, token not found: %v", token)
		return ErrVerificationNotFound
	}
	a.Log.Infof("Email verified, token: %v", token)
	return nil
}

// GetByLogin returns the account with this login, or ErrAccountNotFound.
func (a *AccountDB) GetByLogin(login string) (*Account, error) {
	acc := Account{}
	a.DB.Where("login = ?", login).Find(&acc)
	if acc.ID == 0 {
		return nil, ErrAccountNotFound
	}
	return &acc, nil
}
