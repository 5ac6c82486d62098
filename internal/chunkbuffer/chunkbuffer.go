// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package chunkbuffer implements the per-speaker bounded PCM16 FIFO: the
// producer is the WebSocket receive task pushing audio_chunk frames, the
// consumer is that speaker's StreamProcessor cycle. Overflow drops the
// oldest bytes, favoring freshness over completeness.
package chunkbuffer

import (
	"sync"

	"github.com/smallnest/ringbuffer"
)

// DefaultMaxBytes is the default chunk buffer capacity (1 MiB).
const DefaultMaxBytes = 1 << 20

// ChunkBuffer is a bounded, thread-safe byte FIFO. One instance is owned by
// exactly one Connection for the lifetime of that connection.
type ChunkBuffer struct {
	mu       sync.Mutex
	rb       *ringbuffer.RingBuffer
	maxBytes int
}

// New creates a ChunkBuffer bounded at maxBytes. A maxBytes <= 0 falls back
// to DefaultMaxBytes.
func New(maxBytes int) *ChunkBuffer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ChunkBuffer{
		rb:       ringbuffer.New(maxBytes).SetBlocking(false),
		maxBytes: maxBytes,
	}
}

// Push appends data to the buffer. If data alone exceeds the buffer's
// capacity, only the newest suffix of data is kept.
// Otherwise, the oldest buffered bytes are discarded until there is room.
func (c *ChunkBuffer) Push(data []byte) {
	if len(data) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(data) > c.maxBytes {
		data = data[len(data)-c.maxBytes:]
		c.rb.Reset()
	}

	for c.rb.Free() < len(data) {
		if !c.discardOldest(len(data) - c.rb.Free()) {
			c.rb.Reset()
			break
		}
	}

	_, _ = c.rb.Write(data)
}

// discardOldest drops at least `need` bytes from the front of the buffer.
// Returns false if the buffer could not free enough space (should not
// happen once Reset is exhausted as a last resort by the caller).
func (c *ChunkBuffer) discardOldest(need int) bool {
	avail := c.rb.Length()
	if avail == 0 {
		return false
	}
	toDrop := need
	if toDrop > avail {
		toDrop = avail
	}
	scratch := make([]byte, toDrop)
	n, err := c.rb.Read(scratch)
	return err == nil && n == toDrop
}

// Drain atomically removes and returns every byte currently buffered.
// Returns nil if the buffer is empty.
func (c *ChunkBuffer) Drain() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.rb.Length()
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	read, err := c.rb.Read(out)
	if err != nil || read != n {
		return out[:read]
	}
	return out
}

// Len reports the number of bytes currently buffered.
func (c *ChunkBuffer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rb.Length()
}

// Capacity reports the configured maximum byte count.
func (c *ChunkBuffer) Capacity() int {
	return c.maxBytes
}
