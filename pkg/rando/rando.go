// Package rando generates random secrets from crypto/rand.
package rando

import "crypto/rand"

// This is 62 symbols, hence 5.9542 bits per character
// At 20 characters, that's 119 bits
// At 24 characters, that's 142 bits
// At 32 characters, that's 190 bits
const alphaNumChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// 36 symbols, 5.17 bits per character
const lowerAlphaNumChars = "abcdefghijklmnopqrstuvwxyz0123456789"

const lowerAlphaChars = "abcdefghijklmnopqrstuvwxyz"

func StrongRandomAlphaNumChars(nchars int) string {
	return fromAlphabet(alphaNumChars, nchars)
}

// StrongRandomLowerAlphaNumChars returns a random [a-z0-9] string.
// It never contains '-', which matters for generated logins.
func StrongRandomLowerAlphaNumChars(nchars int) string {
	return fromAlphabet(lowerAlphaNumChars, nchars)
}

// StrongRandomLowerAlphaChars returns a random [a-z] string.
func StrongRandomLowerAlphaChars(nchars int) string {
	return fromAlphabet(lowerAlphaChars, nchars)
}

func StrongRandomBytes(nbytes int) []byte {
	buf := make([]byte, nbytes)
	if n, _ := rand.Read(buf[:]); n != nbytes {
		panic("Unable to read from crypto/rand")
	}
	return buf
}

func fromAlphabet(alphabet string, nchars int) string {
	buf := StrongRandomBytes(nchars)
	for i := 0; i < nchars; i++ {
		buf[i] = alphabet[buf[i]%byte(len(alphabet))]
	}
	return string(buf)
}
