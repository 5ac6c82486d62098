// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package elevenlabs adapts the ElevenLabs text-to-speech REST API as a
// ports.TTS, following the REST option-building idiom of
// api/assistant-api/internal/transformer/resemble/resemble.go (no Go SDK
// for ElevenLabs ships in this stack, so the call goes through go-resty as
// the pack's general-purpose HTTP client).
package elevenlabs

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/translate/internal/ports"
)

const synthesizeURLFmt = "https://api.elevenlabs.io/v1/text-to-speech/%s"

// Config carries the ElevenLabs API key, default voice id, and model.
type Config struct {
	APIKey  string
	VoiceID string
	ModelID string
}

// Provider implements ports.TTS against the ElevenLabs REST API.
type Provider struct {
	client  *resty.Client
	voiceID string
	modelID string
}

// New validates the API key and returns a Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tts/elevenlabs: illegal config, missing api key")
	}
	if cfg.VoiceID == "" {
		return nil, fmt.Errorf("tts/elevenlabs: illegal config, missing voice_id")
	}
	model := cfg.ModelID
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	client := resty.New().
		SetHeader("xi-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &Provider{client: client, voiceID: cfg.VoiceID, modelID: model}, nil
}

var _ ports.TTS = (*Provider)(nil)

// Synthesize requests raw 16kHz PCM16 output directly, so no client-side
// decode step is needed. A supplied voiceRef overrides the default
// voice id, honoring the cloned-voice path.
func (p *Provider) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	voiceID := p.voiceID
	usedVoice := false
	if voiceRef != nil && voiceRef.Path != "" {
		voiceID = voiceRef.Path
		usedVoice = true
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("output_format", "pcm_16000").
		SetBody(map[string]interface{}{
			"text":     text,
			"model_id": p.modelID,
			"language_code": language,
		}).
		Post(fmt.Sprintf(synthesizeURLFmt, voiceID))
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/elevenlabs: request failed: %w", err)
	}
	if resp.IsError() {
		return ports.SynthesisResult{}, fmt.Errorf("tts/elevenlabs: synthesize returned %s: %s", resp.Status(), resp.String())
	}

	return ports.SynthesisResult{
		PCM16:      resp.Body(),
		SampleRate: 16000,
		UsedVoice:  usedVoice,
	}, nil
}
