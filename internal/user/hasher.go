package user

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is a salted one-way hash pair.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. The salt lives inside the hash string.
type BcryptHasher struct{ Cost int }

// bcrypt only reads 72 bytes; longer inputs are pre-digested so every
// byte counts and GenerateFromPassword never rejects them.
const bcryptMaxInput = 72

func (b BcryptHasher) input(pw string) []byte {
	if len(pw) <= bcryptMaxInput {
		return []byte(pw)
	}
	sum := sha256.Sum256([]byte(pw))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword(b.input(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify is false for a wrong password and for a malformed hash.
func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), b.input(pw)) == nil
}
