// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package connection owns the Connection Manager: the authenticated
// WebSocket registry indexed by (room, user), per-user outbound channels,
// and room membership. Grounded on the idempotent-Close and
// non-blocking-push idioms in internal/channel/webrtc/streamer.go, and on
// the RoomManager/Participant shape from the wider retrieval pack.
package connection

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rapidaai/translate/internal/chunkbuffer"
)

// Close codes recognized by the signaling plane.
const (
	CloseNormal   = websocket.CloseNormalClosure   // 1000
	CloseAuthFail = websocket.ClosePolicyViolation // 1008
	CloseInternal = websocket.CloseInternalServerErr
	CloseReplaced = 4001
)

// Connection is one authenticated (user_id, room_id) pair while its
// WebSocket is open. Exactly one Connection exists per pair at any instant;
// a new authenticated connect for the same pair evicts the old one.
type Connection struct {
	UserID string
	RoomID string

	// SessionID distinguishes one physical socket from the next for the
	// same (user, room) pair across reconnects, for log correlation.
	SessionID string

	// ChunkBuffer is this Connection's exclusively-owned PCM16 FIFO; the
	// speaker's StreamProcessor borrows a read handle on it.
	ChunkBuffer *chunkbuffer.ChunkBuffer

	ws *websocket.Conn

	// langMu guards InputLang/OutputLang/Muted, which are hot-swappable via
	// language_update / control frames without tearing down the connection.
	langMu     sync.RWMutex
	inputLang  string
	outputLang string
	muted      bool

	// outbound is this Connection's exclusively-owned send channel. It is
	// never written to while holding the manager's lock.
	outbound chan []byte

	createdAt    time.Time
	lastActivity atomic.Int64 // unix nanos

	slowConsumerDrops atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
}

func newConnection(userID, roomID string, ws *websocket.Conn, inputLang, outputLang string, outboundDepth, chunkBufferMaxBytes int) *Connection {
	if outboundDepth <= 0 {
		outboundDepth = 32
	}
	c := &Connection{
		UserID:      userID,
		RoomID:      roomID,
		SessionID:   uuid.NewString(),
		ChunkBuffer: chunkbuffer.New(chunkBufferMaxBytes),
		ws:          ws,
		inputLang:   inputLang,
		outputLang:  outputLang,
		outbound:    make(chan []byte, outboundDepth),
		createdAt:   time.Now(),
		stopCh:      make(chan struct{}),
	}
	c.touch()
	return c
}

func (c *Connection) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the last time this connection recv'd or sent.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// CreatedAt returns the connection's creation time.
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// Languages returns the connection's current input/output language pair.
func (c *Connection) Languages() (input, output string) {
	c.langMu.RLock()
	defer c.langMu.RUnlock()
	return c.inputLang, c.outputLang
}

// SetLanguages hot-swaps the input/output language pair; idempotent in its
// arguments.
func (c *Connection) SetLanguages(input, output string) {
	c.langMu.Lock()
	defer c.langMu.Unlock()
	if input != "" {
		c.inputLang = input
	}
	if output != "" {
		c.outputLang = output
	}
}

// Muted reports whether this speaker is currently muted.
func (c *Connection) Muted() bool {
	c.langMu.RLock()
	defer c.langMu.RUnlock()
	return c.muted
}

// SetMuted toggles the mute flag; the StreamProcessor keeps running but
// skips ASR/MT/TTS while muted.
func (c *Connection) SetMuted(muted bool) {
	c.langMu.Lock()
	defer c.langMu.Unlock()
	c.muted = muted
}

// Send enqueues a message non-blocking. On a full channel the message is
// dropped and the slow-consumer counter increments; the caller is never
// blocked.
func (c *Connection) Send(payload []byte) (dropped bool) {
	if c.closed.Load() {
		return true
	}
	select {
	case c.outbound <- payload:
		return false
	default:
		c.slowConsumerDrops.Add(1)
		return true
	}
}

// SlowConsumerDrops reports how many outbound messages were dropped because
// this connection's channel was full.
func (c *Connection) SlowConsumerDrops() int64 {
	return c.slowConsumerDrops.Load()
}

// Outbound exposes the receive side of the send channel for the writer task.
func (c *Connection) Outbound() <-chan []byte {
	return c.outbound
}

// Done is closed when this connection begins shutting down; all three
// per-connection tasks (recv/send/StreamProcessor) select on it.
func (c *Connection) Done() <-chan struct{} {
	return c.stopCh
}

// stop signals shutdown exactly once; idempotent.
func (c *Connection) stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// closeWS closes the underlying WebSocket with the given close code.
// Idempotent: safe to call more than once.
func (c *Connection) closeWS(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		deadline := time.Now().Add(2 * time.Second)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.ws.Close()
	})
}

// WS exposes the raw connection for the recv/send tasks.
func (c *Connection) WS() *websocket.Conn { return c.ws }

// Touch marks activity; called by recv/send tasks on every frame.
func (c *Connection) Touch() { c.touch() }
