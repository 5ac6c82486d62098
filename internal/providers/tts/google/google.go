// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package google adapts Google Cloud Text-to-Speech as a ports.TTS,
// following the voice-selection option idiom of
// api/assistant-api/internal/transformer/google/google.go.
package google

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/rapidaai/translate/internal/ports"
)

const defaultVoice = "en-US-Chirp-HD-F"

// Config carries the Google Cloud credential material and default voice.
type Config struct {
	APIKey          string
	CredentialsJSON []byte
	Voice           string
}

// Provider implements ports.TTS against the Google Text-to-Speech
// SynthesizeSpeech RPC. Google's voices are not caller-supplied reference
// samples, so a VoiceReference never maps to UsedVoice=true here.
type Provider struct {
	client *texttospeech.Client
	voice  string
}

// New dials the Google Text-to-Speech client.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	default:
		return nil, fmt.Errorf("tts/google: no credentials configured")
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts/google: dial client: %w", err)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	return &Provider{client: client, voice: voice}, nil
}

// Synthesize requests LINEAR16 (16-bit PCM) output at 24 kHz and reports
// that rate; converting it to the wire output rate is left to the caller.
func (p *Provider) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         p.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: 24000,
		},
	})
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/google: synthesize speech: %w", err)
	}
	return ports.SynthesisResult{
		PCM16:      resp.AudioContent,
		SampleRate: 24000,
		UsedVoice:  false,
	}, nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	return p.client.Close()
}
