package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		surname string
	}{
		{"two tokens", "Ada Lovelace", "Ada", "Lovelace"},
		{"three tokens keeps last as surname", "Ada King Lovelace", "Ada King", "Lovelace"},
		{"single token", "Ada", "Ada", ""},
		{"surrounding whitespace", "  Ada Lovelace  ", "Ada", "Lovelace"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitFullName(tt.in)
			assert.Equal(t, tt.want, first)
			assert.Equal(t, tt.surname, last)
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	a := GeneratePassword()
	b := GeneratePassword()
	assert.Len(t, a, 14)
	assert.NotEqual(t, a, b)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	assert.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword("secret123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestGenerateID(t *testing.T) {
	id := GenerateID("usr")
	assert.True(t, ValidateUserID(id))
	assert.Len(t, id, len("usr-")+10)
}
