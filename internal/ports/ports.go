// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package ports defines the abstract collaborator interfaces the core
// depends on but does not own: authentication, user/room directories, and
// the ASR/MT/TTS/voice-profile model services. Concrete implementations
// live under internal/providers, internal/auth, and internal/voiceprofile.
package ports

import "context"

// Auth validates a bearer token and resolves it to a user id.
type Auth interface {
	Validate(ctx context.Context, token string) (userID string, err error)
}

// UserInfo is the directory-resolved identity of a participant.
type UserInfo struct {
	UserID   string
	Username string
	FullName string
}

// UserDirectory resolves display identity for a user id.
type UserDirectory interface {
	Get(ctx context.Context, userID string) (UserInfo, error)
}

// RoomRegistry answers whether a room id is a legitimate, joinable room.
type RoomRegistry interface {
	Exists(ctx context.Context, roomID string) (bool, error)
}

// TranscriptionResult is the ASR port's output for one aggregated block.
type TranscriptionResult struct {
	Text             string
	DetectedLanguage string
	Confidence       float64
}

// ASR transcribes one aggregated PCM16 block. languageHint may be empty to
// request automatic language detection.
type ASR interface {
	Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, languageHint string) (TranscriptionResult, error)
}

// MT translates text between two BCP-47-ish language tags.
type MT interface {
	Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error)
}

// SynthesisResult is the TTS port's output, reporting whether the provided
// voice reference was actually honored so the caller can set voice_fallback.
type SynthesisResult struct {
	PCM16      []byte
	SampleRate int
	UsedVoice  bool
}

// VoiceReference points TTS at a cloned-voice sample, when one is available.
type VoiceReference struct {
	Path     string
	Language string
}

// TTS synthesizes speech for text in the given language, optionally guided
// by a voice reference sample.
type TTS interface {
	Synthesize(ctx context.Context, text, language string, voiceRef *VoiceReference) (SynthesisResult, error)
}

// VoiceProfile is the read-facing view the Stream Processor borrows; the
// concrete store (internal/voiceprofile) performs the two-step existence
// check this interface contract requires.
type VoiceProfile struct {
	UserID             string
	ReferenceAudioPath string
	Language           string
}

// VoiceProfileStore resolves a user's cloned-voice reference, if any.
type VoiceProfileStore interface {
	Get(ctx context.Context, userID string) (*VoiceProfile, error)
}
