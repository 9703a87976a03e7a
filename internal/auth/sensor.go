package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSensorKey returns a new random sensor key and its bcrypt hash.
// Only the hash is stored; the key is shown to the registering user once.
func GenerateSensorKey() (key, hash string, err error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate sensor key: %w", err)
	}
	key = "sk_" + hex.EncodeToString(b)

	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash sensor key: %w", err)
	}
	return key, string(h), nil
}

// CheckSensorKey reports whether key matches the stored hash.
func CheckSensorKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
