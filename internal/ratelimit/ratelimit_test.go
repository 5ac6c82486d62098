package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow(1024))
	}
}

func TestChunksPerSecondCapEventuallyDrops(t *testing.T) {
	l := New(2, 0)
	assert.True(t, l.Allow(10))
	assert.True(t, l.Allow(10))
	assert.False(t, l.Allow(10))
}

func TestBytesPerMinuteCapEventuallyDrops(t *testing.T) {
	l := New(0, 100)
	assert.True(t, l.Allow(60))
	assert.False(t, l.Allow(60))
}
