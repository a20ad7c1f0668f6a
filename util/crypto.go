package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// ComputeHMAC returns the base64 encoded HMAC-SHA256 of data under key
func ComputeHMAC(key string, data []byte) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(data)

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyHMAC compares the received HMAC with the expected one using
// constant-time comparison
func VerifyHMAC(key string, data []byte, received string) bool {
	expected := ComputeHMAC(key, data)

	return hmac.Equal([]byte(received), []byte(expected))
}

// NewHMACKey returns a random base64 encoded 256 bit key
func NewHMACKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(key), nil
}
