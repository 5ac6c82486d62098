// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package ws hosts the authenticated WebSocket endpoint
// (`/<prefix>/ws/audio/{room_id}`): it upgrades the HTTP
// connection, authenticates via the Auth port, registers the Connection
// with the Connection Manager, starts that speaker's StreamProcessor on
// its init_settings frame, and runs the per-connection receive/send tasks that dispatch discriminated
// JSON frames to the pipeline and signaling relay. Grounded on the
// upgrader/auth-extraction shape of api/assistant-api/api/talk/webrtc.go
// and the *Route(cfg, engine, logger, ...) wiring idiom of
// api/assistant-api/router/assistant.go.
package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rapidaai/translate/internal/commons"
	"github.com/rapidaai/translate/internal/config"
	"github.com/rapidaai/translate/internal/connection"
	"github.com/rapidaai/translate/internal/modelloader"
	"github.com/rapidaai/translate/internal/pipeline"
	"github.com/rapidaai/translate/internal/ports"
	"github.com/rapidaai/translate/internal/ratelimit"
	"github.com/rapidaai/translate/internal/signaling"
	"github.com/rapidaai/translate/internal/translationcache"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connectedMessage acknowledges a successful authenticate-and-register.
type connectedMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// rosterMessage covers both participant_joined and participant_left;
// the Type field distinguishes them.
type rosterMessage struct {
	Type         string                       `json:"type"`
	UserID       string                       `json:"user_id"`
	UserName     string                       `json:"user_name,omitempty"`
	Participants []connection.ParticipantInfo `json:"participants"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Stage string `json:"stage,omitempty"`
}

// inboundFrame is the union of every client->server message shape;
// fields outside the frame's Type are simply left zero-valued.
type inboundFrame struct {
	Type string `json:"type"`

	InputLanguage        string   `json:"input_language"`
	OutputLanguage       string   `json:"output_language"`
	SpeaksLanguages      []string `json:"speaks_languages"`
	UnderstandsLanguages []string `json:"understands_languages"`
	VoiceProfileExists   bool     `json:"voice_profile_exists"`

	AudioData string `json:"audio_data"`
	Timestamp int64  `json:"timestamp"`

	Action string `json:"action"`

	TargetUserID string          `json:"target_user_id"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// Hub bundles every collaborator the WebSocket handler needs to run the
// full pipeline + signaling plane for one room's worth of connections.
type Hub struct {
	logger commons.Logger
	cfg    *config.AppConfig

	authn ports.Auth
	users ports.UserDirectory
	rooms ports.RoomRegistry

	manager *connection.Manager
	relay   *signaling.Relay
	loader  *modelloader.Loader
	cache   *translationcache.Cache
	voices  ports.VoiceProfileStore
	vad     pipeline.VADFunc

	procMu     sync.Mutex
	processors map[string]*pipeline.Processor // user_id -> Processor

	limiterMu sync.Mutex
	limiters  map[string]*ratelimit.Limiter // user_id -> Limiter
}

// NewHub wires every collaborator required to serve the WebSocket
// endpoint. loader/cache/voices/vad are shared singletons created once at
// process start and injected explicitly, with no module-level mutation.
func NewHub(
	logger commons.Logger,
	cfg *config.AppConfig,
	authn ports.Auth,
	users ports.UserDirectory,
	rooms ports.RoomRegistry,
	loader *modelloader.Loader,
	cache *translationcache.Cache,
	voices ports.VoiceProfileStore,
	vad pipeline.VADFunc,
) *Hub {
	h := &Hub{
		logger:     logger,
		cfg:        cfg,
		authn:      authn,
		users:      users,
		rooms:      rooms,
		loader:     loader,
		cache:      cache,
		voices:     voices,
		vad:        vad,
		processors: make(map[string]*pipeline.Processor),
		limiters:   make(map[string]*ratelimit.Limiter),
	}
	h.manager = connection.NewManager(logger, users, cfg.Room.OutboundChannelDepth, cfg.Room.MaxParticipants, h.onProcessorStop)
	h.relay = signaling.New(logger, h.manager)
	return h
}

// Route registers the authenticated audio WebSocket endpoint under the
// configured path prefix.
func Route(cfg *config.AppConfig, engine *gin.Engine, h *Hub) {
	group := engine.Group(cfg.WSPathPrefix)
	group.GET("/ws/audio/:room_id", h.handleConnect)
}

func (h *Hub) onProcessorStop(userID, roomID string) {
	h.procMu.Lock()
	proc, ok := h.processors[userID]
	delete(h.processors, userID)
	h.procMu.Unlock()
	if ok {
		proc.Stop()
	}
	h.limiterMu.Lock()
	delete(h.limiters, userID)
	h.limiterMu.Unlock()
}

func (h *Hub) handleConnect(c *gin.Context) {
	roomID := c.Param("room_id")
	token := c.Query("token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("ws: upgrade failed for room %s: %v", roomID, err)
		return
	}

	ctx := c.Request.Context()

	userID, err := h.authn.Validate(ctx, token)
	if err != nil {
		h.logger.Debugf("ws: auth failed for room %s: %v", roomID, err)
		closeWithCode(ws, connection.CloseAuthFail, "invalid token")
		return
	}

	if exists, err := h.rooms.Exists(ctx, roomID); err != nil || !exists {
		h.logger.Debugf("ws: room %s not found or lookup failed: %v", roomID, err)
		closeWithCode(ws, websocket.CloseNormalClosure, "room not found")
		return
	}

	if h.manager.RoomSize(roomID) >= h.manager.MaxParticipants() {
		h.logger.Infow("ws: room at capacity, rejecting connect", "room_id", roomID, "user_id", userID)
		payload := marshalOrNil(errorMessage{Type: "error", Text: "room is full", Stage: "connect"})
		if payload != nil {
			_ = ws.WriteMessage(websocket.TextMessage, payload)
		}
		closeWithCode(ws, websocket.CloseTryAgainLater, "room full")
		return
	}

	conn := h.manager.Connect(userID, roomID, ws, "en", "en")
	h.logger.Infow("ws: connected", "user_id", userID, "room_id", roomID)

	if h.cfg.RateLimit.Enabled {
		h.limiterMu.Lock()
		h.limiters[userID] = ratelimit.New(h.cfg.RateLimit.ChunksPerSecond, h.cfg.RateLimit.BytesPerMinute)
		h.limiterMu.Unlock()
	}

	h.send(conn, connectedMessage{Type: "connected", UserID: userID})
	h.broadcastJoin(ctx, roomID, userID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.writerLoop(conn)
	}()
	go func() {
		defer wg.Done()
		h.readerLoop(ctx, conn)
	}()
	wg.Wait()
}

func (h *Hub) broadcastJoin(ctx context.Context, roomID, userID string) {
	info, err := h.users.Get(ctx, userID)
	userName := userID
	if err == nil {
		userName = info.FullName
	}
	participants := h.manager.GetParticipantsInfo(ctx, roomID)
	h.manager.BroadcastToRoom(roomID, marshalOrNil(rosterMessage{
		Type:         "participant_joined",
		UserID:       userID,
		UserName:     userName,
		Participants: participants,
	}), userID)
}

func (h *Hub) broadcastLeave(ctx context.Context, roomID, userID string) {
	participants := h.manager.GetParticipantsInfo(ctx, roomID)
	h.manager.BroadcastToRoom(roomID, marshalOrNil(rosterMessage{
		Type:         "participant_left",
		UserID:       userID,
		Participants: participants,
	}), "")
}

// writerLoop drains the Connection's outbound channel to the WebSocket
// until the Connection is torn down.
func (h *Hub) writerLoop(conn *connection.Connection) {
	for {
		select {
		case payload, ok := <-conn.Outbound():
			if !ok {
				return
			}
			conn.Touch()
			if err := conn.WS().WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

// readerLoop is the receive task: it decodes inbound frames and dispatches
// them, tearing the Connection down on any read error or Done() signal.
func (h *Hub) readerLoop(ctx context.Context, conn *connection.Connection) {
	defer func() {
		// A replaced connection's teardown must never disconnect the
		// connection that replaced it: only act if this Connection is
		// still the one the Manager has on file for this user. No
		// participant_left is broadcast for the evicted peer.
		if current, ok := h.manager.Get(conn.UserID); ok && current == conn {
			h.manager.Disconnect(conn.UserID, conn.RoomID, "client disconnected")
			h.broadcastLeave(ctx, conn.RoomID, conn.UserID)
		}
	}()

	for {
		select {
		case <-conn.Done():
			return
		default:
		}

		_, raw, err := conn.WS().ReadMessage()
		if err != nil {
			return
		}
		conn.Touch()

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.logger.Debugf("ws: malformed frame from %s: %v", conn.UserID, err)
			continue
		}

		h.dispatch(ctx, conn, frame)
	}
}

func (h *Hub) dispatch(ctx context.Context, conn *connection.Connection, frame inboundFrame) {
	switch frame.Type {
	case "init_settings":
		conn.SetLanguages(frame.InputLanguage, frame.OutputLanguage)
		h.startProcessor(ctx, conn)

	case "language_update":
		conn.SetLanguages(frame.InputLanguage, frame.OutputLanguage)

	case "audio_chunk":
		h.handleAudioChunk(conn, frame)

	case "control":
		switch frame.Action {
		case "mute":
			conn.SetMuted(true)
		case "unmute":
			conn.SetMuted(false)
		default:
			h.logger.Debugf("ws: unknown control action %q from %s", frame.Action, conn.UserID)
		}

	case "webrtc_offer", "webrtc_answer", "ice_candidate":
		h.relay.Forward(conn.UserID, signaling.InboundEnvelope{
			Type:         frame.Type,
			TargetUserID: frame.TargetUserID,
			Offer:        frame.Offer,
			Answer:       frame.Answer,
			Candidate:    frame.Candidate,
		}, h.manager.GetRoomUsers(conn.RoomID))

	default:
		h.logger.Debugf("ws: dropping unknown frame type %q from %s", frame.Type, conn.UserID)
	}
}

func (h *Hub) handleAudioChunk(conn *connection.Connection, frame inboundFrame) {
	if frame.AudioData == "" {
		return
	}
	pcm16, err := base64.StdEncoding.DecodeString(frame.AudioData)
	if err != nil {
		h.logger.Debugf("ws: malformed audio_chunk from %s: %v", conn.UserID, err)
		return
	}
	if len(pcm16) == 0 {
		return
	}

	h.limiterMu.Lock()
	limiter := h.limiters[conn.UserID]
	h.limiterMu.Unlock()
	if limiter != nil && !limiter.Allow(len(pcm16)) {
		return
	}

	conn.ChunkBuffer.Push(pcm16)
}

// startProcessor is idempotent: calling init_settings repeatedly for the
// same speaker never spawns a second StreamProcessor.
func (h *Hub) startProcessor(ctx context.Context, conn *connection.Connection) {
	h.procMu.Lock()
	defer h.procMu.Unlock()

	if _, exists := h.processors[conn.UserID]; exists {
		return
	}

	proc := pipeline.New(
		h.logger.With("component", "pipeline", "user_id", conn.UserID),
		h.manager,
		conn,
		h.loader,
		h.cache,
		h.voices,
		h.vad,
		h.cfg.Pipeline,
		h.cfg.Audio,
	)
	h.processors[conn.UserID] = proc
	proc.Start(ctx)
}

func (h *Hub) send(conn *connection.Connection, v interface{}) {
	payload := marshalOrNil(v)
	if payload == nil {
		return
	}
	conn.Send(payload)
}

func marshalOrNil(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func closeWithCode(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(2 * time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = ws.Close()
}
