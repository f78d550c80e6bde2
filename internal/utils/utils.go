package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateID generates a unique ID with the given prefix.
func GenerateID(prefix string) string {
	const length = 10

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		result[i] = idCharset[num.Int64()]
	}

	return fmt.Sprintf("%s-%s", prefix, string(result))
}

// GeneratePassword returns a random plaintext password for admin-provisioned
// accounts. The owner receives it by mail and is expected to change it.
func GeneratePassword() string {
	const length = 14

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		result[i] = idCharset[num.Int64()]
	}
	return string(result)
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// SplitFullName derives a surname from a combined name by splitting on the
// last whitespace boundary: "Ada Lovelace" -> ("Ada", "Lovelace"). Multi-word
// surnames are split lossily; callers that know better should pass a surname
// explicitly. Names without whitespace are returned unchanged with an empty
// surname.
func SplitFullName(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	idx := strings.LastIndexAny(trimmed, " \t")
	if idx < 0 {
		return trimmed, ""
	}
	return strings.TrimSpace(trimmed[:idx]), trimmed[idx+1:]
}

// ValidateUserID validates the user ID format.
func ValidateUserID(userID string) bool {
	return strings.HasPrefix(userID, "usr-")
}
