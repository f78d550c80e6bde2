package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRev(t *testing.T) {
	first := newRev("")
	assert.True(t, strings.HasPrefix(first, "1-"))

	second := newRev(first)
	assert.True(t, strings.HasPrefix(second, "2-"))
	assert.NotEqual(t, first, second)

	tenth := newRev("9-deadbeef")
	assert.True(t, strings.HasPrefix(tenth, "10-"))
}

func TestNewRevGarbageInput(t *testing.T) {
	// A malformed token restarts the sequence rather than failing a write.
	rev := newRev("not-a-rev")
	assert.True(t, strings.HasPrefix(rev, "1-"))
}
