package chunkbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushAndDrainRoundTrips(t *testing.T) {
	cb := New(1024)
	cb.Push([]byte("hello"))
	cb.Push([]byte(" world"))

	assert.Equal(t, 11, cb.Len())
	out := cb.Drain()
	assert.Equal(t, "hello world", string(out))
	assert.Equal(t, 0, cb.Len())
}

func TestDrainOnEmptyReturnsNil(t *testing.T) {
	cb := New(1024)
	assert.Nil(t, cb.Drain())
}

func TestPushIgnoresZeroLengthChunk(t *testing.T) {
	cb := New(1024)
	cb.Push(nil)
	cb.Push([]byte{})
	assert.Equal(t, 0, cb.Len())
}

func TestOverflowDropsOldestBytesFirst(t *testing.T) {
	cb := New(8)
	cb.Push([]byte("AAAA")) // 4 bytes
	cb.Push([]byte("BBBB")) // 4 bytes, buffer now full at 8
	cb.Push([]byte("CC"))   // needs 2 bytes of room; drops 2 oldest ('A','A')

	out := cb.Drain()
	assert.Equal(t, 8, len(out))
	assert.Equal(t, "AABBBBCC", string(out))
}

func TestChunkLargerThanCapacityKeepsNewestSuffix(t *testing.T) {
	cb := New(4)
	cb.Push([]byte("0123456789"))

	out := cb.Drain()
	assert.Equal(t, "6789", string(out))
}

func TestCapacityReportsConfiguredMax(t *testing.T) {
	cb := New(2048)
	assert.Equal(t, 2048, cb.Capacity())
}

func TestNewFallsBackToDefaultOnNonPositiveMax(t *testing.T) {
	cb := New(0)
	assert.Equal(t, DefaultMaxBytes, cb.Capacity())
}
