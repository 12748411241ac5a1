package accountdb

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/cyclopcam/dbh"

	"github.com/forgeyard/forgeyard/pkg/pwdhash"
	"github.com/forgeyard/forgeyard/pkg/rando"
)

// TokenTTL is the lifetime of a bearer token issued at login.
const TokenTTL = 24 * time.Hour

// 30 alphanumeric characters is about 178 bits
const tokenLen = 30

// Tokens are stored keyed-hashed, so a leaked account table does not leak
// live sessions. The caller of Login gets the only plaintext copy.
func (a *AccountDB) hashToken(token string) string {
	m := hmac.New(sha256.New, []byte(a.tokenSecret))
	m.Write([]byte(token))
	return base64.RawStdEncoding.EncodeToString(m.Sum(nil))
}

// Login checks email+password and issues a fresh bearer token, replacing any
// prior session on the account. Email verification is deliberately NOT
// required here: an unverified account can log in, but the token it receives
// is rejected by AuthenticateBearer until the email is verified.
func (a *AccountDB) Login(email, password string) (string, error) {
	if err := validateEmailAndPassword(email, password); err != nil {
		return "", err
	}
	acc := Account{}
	a.DB.Where("email = ?", email).Find(&acc)
	if acc.ID == 0 || !pwdhash.Verify(a.legacySalt, password, acc.Password) {
		a.Log.Warnf("Login failed, email: %v", email)
		return "", ErrAccountNotFound
	}

	token := rando.StrongRandomAlphaNumChars(tokenLen)
	now := time.Now().UTC()
	err := a.DB.Model(&Account{}).Where("id = ?", acc.ID).Updates(map[string]any{
		"token_hash":       a.hashToken(token),
		"token_expires_at": dbh.MakeIntTime(now.Add(TokenTTL)),
		"updated_at":       dbh.MakeIntTime(now),
	}).Error
	if err != nil {
		return "", err
	}
	a.Log.Infof("Issued bearer token, login: %v", acc.Login)
	a.purgeExpiredTokens()
	return token, nil
}

// AuthenticateBearer resolves a bearer token to a login.
// A token whose expiry is not strictly in the future never authenticates.
func (a *AccountDB) AuthenticateBearer(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	acc := Account{}
	a.DB.Where("token_hash = ? AND token_expires_at > ?", a.hashToken(token), time.Now().UnixMilli()).Find(&acc)
	if acc.ID == 0 {
		return "", ErrAccountNotFound
	}
	if !acc.EmailVerified {
		return "", ErrEmailNotVerified
	}
	return acc.Login, nil
}

// AuthenticateBasic resolves email+password credentials to a login.
// Used by the git HTTP gateway.
func (a *AccountDB) AuthenticateBasic(email, password string) (string, error) {
	if err := validateEmailAndPassword(email, password); err != nil {
		return "", err
	}
	acc := Account{}
	a.DB.Where("email = ?", email).Find(&acc)
	if acc.ID == 0 || !pwdhash.Verify(a.legacySalt, password, acc.Password) {
		return "", ErrAccountNotFound
	}
	if !acc.EmailVerified {
		return "", ErrEmailNotVerified
	}
	return acc.Login, nil
}

// Sessions are single-row, so there is no session table to purge; we just
// drop token hashes that can never authenticate again.
func (a *AccountDB) purgeExpiredTokens() {
	err := a.DB.Model(&Account{}).
		Where("token_hash != '' AND token_expires_at <= ?", time.Now().UnixMilli()).
		Updates(map[string]any{"token_hash": "", "token_expires_at": 0}).Error
	if err != nil {
		a.Log.Warnf("purgeExpiredTokens failed: %v", err)
	}
}
