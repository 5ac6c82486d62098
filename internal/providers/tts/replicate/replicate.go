// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package replicate adapts a Replicate-hosted voice-cloning TTS model
// (e.g. coqui/xtts-v2) as a ports.TTS via replicate-go. When a voice
// reference is given, its audio file is passed to the model as the
// speaker sample. It is used only when it is the configured TTS vendor.
package replicate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/replicate/replicate-go"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the Replicate API token and the model version to run.
type Config struct {
	APIToken string
	Model    string // owner/name:version
}

// Provider implements ports.TTS by running a Replicate voice-cloning
// model and downloading its WAV output.
type Provider struct {
	client *replicate.Client
	model  string
}

// New validates the API token and returns a Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("tts/replicate: illegal config, missing api token")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("tts/replicate: illegal config, missing model")
	}
	client, err := replicate.NewClient(replicate.WithToken(cfg.APIToken))
	if err != nil {
		return nil, fmt.Errorf("tts/replicate: client: %w", err)
	}
	return &Provider{client: client, model: cfg.Model}, nil
}

var _ ports.TTS = (*Provider)(nil)

// Synthesize runs the configured voice-cloning model and downloads the
// resulting WAV, stripping the 44-byte RIFF/WAVE header to hand back raw
// PCM16. A nil voiceRef still runs the model with its stock speaker.
func (p *Provider) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	input := replicate.PredictionInput{
		"text":     text,
		"language": language,
	}
	usedVoice := false
	if voiceRef != nil && voiceRef.Path != "" {
		input["speaker_wav"] = voiceRef.Path
		usedVoice = true
	}

	output, err := p.client.Run(ctx, p.model, input, nil)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/replicate: run: %w", err)
	}

	url, ok := output.(string)
	if !ok {
		if items, ok := output.([]interface{}); ok && len(items) > 0 {
			url, _ = items[0].(string)
		}
	}
	if url == "" {
		return ports.SynthesisResult{}, fmt.Errorf("tts/replicate: unexpected output shape %T", output)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/replicate: build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/replicate: download output: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/replicate: read output: %w", err)
	}

	const wavHeaderSize = 44
	pcm := raw
	if bytes.HasPrefix(raw, []byte("RIFF")) && len(raw) > wavHeaderSize {
		pcm = raw[wavHeaderSize:]
	}

	return ports.SynthesisResult{
		PCM16:      pcm,
		SampleRate: 24000,
		UsedVoice:  usedVoice,
	}, nil
}
