// Package pwdhash stores and verifies account passwords.
//
// Two formats coexist:
//
// Legacy: hex(sha256(salt || password)), where salt is a single process-wide
// secret. Existing deployments have rows in this format, and the git HTTP
// gateway authenticates against it, so it must keep verifying.
//
// V1: 1 byte of version, 20 bytes of per-account salt, 32 bytes of
// scrypt(16384,8,1), base64 encoded. All newly written hashes use this form.
package pwdhash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/forgeyard/forgeyard/pkg/rando"
)

const hashVersion1 = 1
const saltSizeV1 = 20
const scryptHashSizeV1 = 32
const scryptNV1 = 16384
const scryptrV1 = 8
const scryptpV1 = 1
const hashLenV1 = 1 + saltSizeV1 + scryptHashSizeV1

// A legacy hash is hex(sha256), so always 64 characters.
const legacyHexLen = 2 * sha256.Size

func hashPasswordWithSalt(salt []byte, password string) []byte {
	dk, err := scrypt.Key([]byte(password), salt, scryptNV1, scryptrV1, scryptpV1, scryptHashSizeV1)
	if err != nil {
		panic(fmt.Sprintf("Error hashing password: %v", err))
	}
	final := [hashLenV1]byte{}
	final[0] = hashVersion1
	copy(final[1:1+saltSizeV1], salt)
	copy(final[1+saltSizeV1:], dk)
	return final[:]
}

// HashPassword creates a random per-account salt and returns a V1 hash,
// base64 encoded for storage in a TEXT column.
func HashPassword(password string) string {
	return base64.RawStdEncoding.EncodeToString(hashPasswordWithSalt(rando.StrongRandomBytes(saltSizeV1), password))
}

// LegacyHash returns hex(sha256(globalSalt || password)).
func LegacyHash(globalSalt, password string) string {
	h := sha256.Sum256([]byte(globalSalt + password))
	return hex.EncodeToString(h[:])
}

// Verify reports whether password matches a stored hash of either format.
// globalSalt is only consulted for legacy rows.
func Verify(globalSalt, password, stored string) bool {
	if len(stored) == legacyHexLen {
		if _, err := hex.DecodeString(stored); err == nil {
			return verifyLegacy(globalSalt, password, stored)
		}
	}
	return verifyV1(password, stored)
}

func verifyLegacy(globalSalt, password, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(LegacyHash(globalSalt, password)), []byte(stored)) == 1
}

func verifyV1(password, stored string) bool {
	raw, err := base64.RawStdEncoding.DecodeString(stored)
	if err != nil || len(raw) != hashLenV1 || raw[0] != hashVersion1 {
		return false
	}
	salt := raw[1 : 1+saltSizeV1]
	dk, _ := scrypt.Key([]byte(password), salt, scryptNV1, scryptrV1, scryptpV1, scryptHashSizeV1)
	return subtle.ConstantTimeCompare(dk, raw[1+saltSizeV1:]) == 1
}
