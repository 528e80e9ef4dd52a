package utils

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const apiKeyBytes = 24

// GenerateAPIKey returns a random hex key and its bcrypt hash. Only the hash
// is stored; the plain key is shown to the institution once at creation.
func GenerateAPIKey() (key string, hash string, err error) {
	buf := make([]byte, apiKeyBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	key = hex.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(hashed), nil
}

func HashAPIKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func VerifyAPIKey(hashedKey, key string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key))
	if err != nil {
		return false, err
	}
	return true, nil
}
