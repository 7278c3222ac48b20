package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"animehub/internal/storage"
)

// HashPassword hashes a plaintext password with bcrypt. Primitive
// failures surface as ErrHashing; plaintext is never stored or logged.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrHashing, err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. A mismatch is
// a normal false, not an error; a malformed hash is ErrHashing.
func VerifyPassword(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", storage.ErrHashing, err)
}
