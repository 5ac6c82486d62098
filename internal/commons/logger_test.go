package commons

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerDefaultOptions(t *testing.T) {
	l, err := New(DefaultOptions())
	assert.NoError(t, err)
	assert.NotNil(t, l)
}

func TestLoggerWithAddsFields(t *testing.T) {
	l := NewTestLogger()
	scoped := l.With("room_id", "r1", "user_id", "u1")
	assert.NotNil(t, scoped)
	// Scoped logger must be independently usable without panicking.
	scoped.Infof("hello %s", "world")
}

func TestLoggerLevelFallsBackOnInvalid(t *testing.T) {
	opts := DefaultOptions()
	opts.Level = "not-a-level"
	l, err := New(opts)
	assert.NoError(t, err)
	assert.NotNil(t, l)
}
