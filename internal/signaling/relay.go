// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package signaling implements the WebRTC signaling relay:
// pure stateless forwarding of offer/answer/ICE messages addressed by
// target_user_id. The relay never inspects SDP or ICE candidates - they
// are carried as opaque json.RawMessage - and never imports a WebRTC media
// stack: peer connections are negotiated and terminated entirely between
// clients, with this service only ferrying the handshake messages between them.
package signaling

import (
	"encoding/json"

	"github.com/rapidaai/translate/internal/commons"
)

// Sender is the minimal collaborator the relay needs from the Connection
// Manager: a non-blocking per-user enqueue.
type Sender interface {
	Send(userID string, message []byte) bool
}

// InboundEnvelope is the shape of any of the three inbound signaling
// message types; Offer/Answer/Candidate are mutually exclusive depending
// on Type.
type InboundEnvelope struct {
	Type         string          `json:"type"`
	TargetUserID string          `json:"target_user_id"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// outboundEnvelope adds from_user_id and re-serializes under the same type.
type outboundEnvelope struct {
	Type       string          `json:"type"`
	FromUserID string          `json:"from_user_id"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

// Relay forwards signaling frames within a room. It holds no per-peer
// state of its own; every call is independent.
type Relay struct {
	logger commons.Logger
	sender Sender
}

// New constructs a Relay.
func New(logger commons.Logger, sender Sender) *Relay {
	return &Relay{logger: logger, sender: sender}
}

// Forward resolves env.TargetUserID within roomMembers and, if present,
// delivers the message with from_user_id set to fromUserID. If the target
// is absent (peer left), the message is silently dropped.
func (r *Relay) Forward(fromUserID string, env InboundEnvelope, roomMembers []string) {
	if !contains(roomMembers, env.TargetUserID) {
		r.logger.Debugf("signaling: dropping %s, target %s not in room", env.Type, env.TargetUserID)
		return
	}

	out := outboundEnvelope{
		Type:       env.Type,
		FromUserID: fromUserID,
		Offer:      env.Offer,
		Answer:     env.Answer,
		Candidate:  env.Candidate,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		r.logger.Errorf("signaling: failed to marshal %s for %s: %v", env.Type, env.TargetUserID, err)
		return
	}

	if !r.sender.Send(env.TargetUserID, payload) {
		r.logger.Debugf("signaling: %s to %s dropped (slow consumer or gone)", env.Type, env.TargetUserID)
	}
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
