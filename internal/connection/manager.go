// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rapidaai/translate/internal/chunkbuffer"
	"github.com/rapidaai/translate/internal/commons"
	"github.com/rapidaai/translate/internal/ports"
)

// ErrAuthRequired is returned by Connect when the pre-registration
// authenticate step has not yet succeeded for this socket.
var ErrAuthRequired = errors.New("connection: auth required before connect")

// ParticipantInfo is the broadcast-time roster snapshot, shaped to match
// the participant_joined/participant_left wire contract.
type ParticipantInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

// StopNotifier is invoked once when a Connection's StreamProcessor should
// stop, decoupling ConnectionManager from the pipeline package.
type StopNotifier func(userID, roomID string)

// Manager is the single source of truth for who is connected where. Its two
// maps are guarded by one coarse lock; the per-connection ChunkBuffer and
// outbound channel have independent synchronization and never need this
// lock for push/pop.
type Manager struct {
	logger commons.Logger
	users  ports.UserDirectory

	outboundDepth       int
	maxPerRoom          int
	chunkBufferMaxBytes int

	mu                sync.RWMutex
	activeConnections map[string]*Connection // user_id -> Connection
	roomMembership    map[string][]string    // room_id -> ordered user_ids
	onStop            StopNotifier
}

// NewManager constructs an empty Manager. onStop, if non-nil, is called
// when a Connection is torn down so the pipeline layer can stop that
// speaker's StreamProcessor without this package importing it.
func NewManager(logger commons.Logger, users ports.UserDirectory, outboundDepth, maxParticipantsPerRoom int, onStop StopNotifier) *Manager {
	return &Manager{
		logger:              logger,
		users:               users,
		outboundDepth:       outboundDepth,
		maxPerRoom:          maxParticipantsPerRoom,
		chunkBufferMaxBytes: chunkbuffer.DefaultMaxBytes,
		activeConnections:   make(map[string]*Connection),
		roomMembership:      make(map[string][]string),
		onStop:              onStop,
	}
}

// WithChunkBufferMaxBytes overrides the default ChunkBuffer capacity every
// subsequently-created Connection will use.
func (m *Manager) WithChunkBufferMaxBytes(maxBytes int) *Manager {
	m.chunkBufferMaxBytes = maxBytes
	return m
}

// Connect registers a newly authenticated WebSocket. Any prior Connection
// for the same (user, room) is evicted: its WebSocket is closed with 4001
// and no participant_left is broadcast for it.
func (m *Manager) Connect(userID, roomID string, ws *websocket.Conn, inputLang, outputLang string) *Connection {
	conn := newConnection(userID, roomID, ws, inputLang, outputLang, m.outboundDepth, m.chunkBufferMaxBytes)

	m.mu.Lock()
	prior, existed := m.activeConnections[userID]
	m.activeConnections[userID] = conn
	if !existed || prior.RoomID != roomID {
		m.roomMembership[roomID] = appendUnique(m.roomMembership[roomID], userID)
	}
	m.mu.Unlock()

	if existed {
		m.logger.Infow("evicting prior connection on reconnect",
			"user_id", userID, "room_id", roomID,
			"prior_session_id", prior.SessionID, "new_session_id", conn.SessionID)
		prior.stop()
		prior.closeWS(CloseReplaced, "replaced by new connection")
		if m.onStop != nil {
			m.onStop(userID, prior.RoomID)
		}
	}

	return conn
}

// Disconnect is idempotent: it removes the Connection from both maps,
// stops its tasks, closes the socket with CloseNormal and calls onStop. It
// does nothing when the user has no live Connection in roomID, so a
// replaced Connection's late Disconnect leaves its successor alone.
// Broadcasting participant_left is left to the caller.
func (m *Manager) Disconnect(userID, roomID, reason string) {
	m.mu.Lock()
	conn, ok := m.activeConnections[userID]
	if !ok || conn.RoomID != roomID {
		m.mu.Unlock()
		return
	}
	delete(m.activeConnections, userID)
	m.roomMembership[roomID] = removeUser(m.roomMembership[roomID], userID)
	m.mu.Unlock()

	conn.stop()
	conn.closeWS(CloseNormal, reason)
	if m.onStop != nil {
		m.onStop(userID, roomID)
	}
}

// Get returns the live Connection for a user, if any.
func (m *Manager) Get(userID string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.activeConnections[userID]
	return c, ok
}

// Send is a non-blocking enqueue on the user's outbound channel. Returns
// false if the user has no live connection or if the channel was full.
func (m *Manager) Send(userID string, message []byte) bool {
	conn, ok := m.Get(userID)
	if !ok {
		return false
	}
	return !conn.Send(message)
}

// BroadcastToRoom sends message to every member of roomID except
// excludeUser (pass "" to exclude nobody). A failure sending to one
// listener never aborts sends to others.
func (m *Manager) BroadcastToRoom(roomID string, message []byte, excludeUser string) {
	for _, userID := range m.GetRoomUsers(roomID) {
		if userID == excludeUser {
			continue
		}
		m.Send(userID, message)
	}
}

// GetRoomUsers returns a snapshot copy (not a live view) of a room's
// current membership, in join order.
func (m *Manager) GetRoomUsers(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.roomMembership[roomID]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// RoomSize reports the current membership count, used to enforce the
// max-participants cap before a new Connect.
func (m *Manager) RoomSize(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.roomMembership[roomID])
}

// MaxParticipants returns the configured per-room cap.
func (m *Manager) MaxParticipants() int { return m.maxPerRoom }

// GetParticipantsInfo resolves display names for a room's roster via the
// external User Directory port.
func (m *Manager) GetParticipantsInfo(ctx context.Context, roomID string) []ParticipantInfo {
	userIDs := m.GetRoomUsers(roomID)
	out := make([]ParticipantInfo, 0, len(userIDs))
	for _, uid := range userIDs {
		info, err := m.users.Get(ctx, uid)
		if err != nil {
			m.logger.Warnf("connection: could not resolve user directory entry for %s: %v", uid, err)
			out = append(out, ParticipantInfo{ID: uid, Username: uid, FullName: uid, Name: uid})
			continue
		}
		out = append(out, ParticipantInfo{ID: uid, Username: info.Username, FullName: info.FullName, Name: info.FullName})
	}
	return out
}

func appendUnique(users []string, userID string) []string {
	for _, u := range users {
		if u == userID {
			return users
		}
	}
	return append(users, userID)
}

func removeUser(users []string, userID string) []string {
	out := users[:0]
	for _, u := range users {
		if u != userID {
			out = append(out, u)
		}
	}
	return out
}
