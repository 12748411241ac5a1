package accountdb

import (
	"regexp"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/forgeyard/forgeyard/pkg/pwdhash"
	"github.com/forgeyard/forgeyard/server/schema"
)

const testSalt = "test-salt"

func createTestDB(t *testing.T) *AccountDB {
	db, err := schema.Open(logs.NewTestingLog(t), dbh.MakeSqliteConfig("test-accountdb.sqlite"), dbh.DBConnectFlagWipeDB)
	require.NoError(t, err)
	return NewAccountDB(logs.NewTestingLog(t), db, testSalt, "test-token-secret")
}

func TestSignupVerifyLogin(t *testing.T) {
	a := createTestDB(t)

	acc, err := a.CreateAccount("alice@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	require.NotEmpty(t, acc.Login)
	require.NotEmpty(t, acc.VerificationToken)
	require.False(t, acc.EmailVerified)

	// Login succeeds before verification, but the token doesn't authenticate
	token, err := a.Login("alice@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	_, err = a.AuthenticateBearer(token)
	require.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, a.VerifyEmail(acc.VerificationToken))

	login, err := a.AuthenticateBearer(token)
	require.NoError(t, err)
	require.Equal(t, acc.Login, login)

	// Verification is one-shot, the token is cleared
	require.ErrorIs(t, a.VerifyEmail(acc.VerificationToken), ErrVerificationNotFound)

	login, err = a.AuthenticateBasic("alice@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	require.Equal(t, acc.Login, login)
}

func TestLoginGrammar(t *testing.T) {
	grammar := regexp.MustCompile(`^[a-z][a-z0-9]{11}$`)
	for i := 0; i < 20; i++ {
		require.Regexp(t, grammar, generateLogin())
	}
}

func TestCreateAccountValidation(t *testing.T) {
	a := createTestDB(t)

	_, err := a.CreateAccount("", "pw-abcdefgh")
	require.ErrorIs(t, err, ErrInvalidEmailAndPassword)
	_, err = a.CreateAccount("bob@example.com", "short")
	require.ErrorIs(t, err, ErrInvalidEmailAndPassword)

	_, err = a.CreateAccount("bob@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	_, err = a.CreateAccount("bob@example.com", "other-password")
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestBadCredentials(t *testing.T) {
	a := createTestDB(t)

	acc, err := a.CreateAccount("carol@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	require.NoError(t, a.VerifyEmail(acc.VerificationToken))

	_, err = a.Login("carol@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = a.Login("nobody@example.com", "pw-abcdefgh")
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = a.AuthenticateBearer("not-a-token-we-ever-issued-xxxxx")
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = a.AuthenticateBearer("")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.AuthenticateBasic("carol@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestExpiredToken(t *testing.T) {
	a := createTestDB(t)

	acc, err := a.CreateAccount("dave@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	require.NoError(t, a.VerifyEmail(acc.VerificationToken))
	token, err := a.Login("dave@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	_, err = a.AuthenticateBearer(token)
	require.NoError(t, err)

	// Force the token past its expiry
	expired := dbh.MakeIntTime(time.Now().UTC().Add(-time.Minute))
	require.NoError(t, a.DB.Model(&Account{}).Where("id = ?", acc.ID).Update("token_expires_at", expired).Error)

	_, err = a.AuthenticateBearer(token)
	require.ErrorIs(t, err, ErrAccountNotFound)

	// The next login purges the dead hash and issues a working replacement
	token2, err := a.Login("dave@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	login, err := a.AuthenticateBearer(token2)
	require.NoError(t, err)
	require.Equal(t, acc.Login, login)
}

func TestLegacyPasswordFormat(t *testing.T) {
	a := createTestDB(t)

	acc, err := a.CreateAccount("erin@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	require.NoError(t, a.VerifyEmail(acc.VerificationToken))

	// Accounts migrated from the old system store hex(sha256(salt||password))
	legacy := pwdhash.LegacyHash(testSalt, "pw-abcdefgh")
	require.NoError(t, a.DB.Model(&Account{}).Where("id = ?", acc.ID).Update("password", legacy).Error)

	_, err = a.Login("erin@example.com", "pw-abcdefgh")
	require.NoError(t, err)
	_, err = a.Login("erin@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrAccountNotFound)
}
