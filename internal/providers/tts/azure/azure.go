// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package azure adapts Azure Cognitive Services Speech synthesis as a
// ports.TTS, grounded on azure_test.go's
// common.Raw16Khz16BitMonoPcm output format expectation.
package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the Azure Cognitive Services credential pair and default
// voice name.
type Config struct {
	SubscriptionKey string
	Endpoint        string
	Voice           string
}

// Provider implements ports.TTS via an in-memory (no AudioConfig)
// SpeechSynthesizer, one synthesis call per Synthesize.
type Provider struct {
	subscriptionKey string
	endpoint        string
	voice           string
}

// New validates the credential pair.
func New(cfg Config) (*Provider, error) {
	if cfg.SubscriptionKey == "" {
		return nil, fmt.Errorf("tts/azure: illegal config, missing subscription_key")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tts/azure: illegal config, missing endpoint")
	}
	return &Provider{subscriptionKey: cfg.SubscriptionKey, endpoint: cfg.Endpoint, voice: cfg.Voice}, nil
}

var _ ports.TTS = (*Provider)(nil)

// Synthesize runs one SpeakTextAsync call against a raw 16kHz PCM output
// format; voiceRef is not honored since Azure's stock voices cannot be
// guided by a reference sample without a separately-provisioned custom
// neural voice, so UsedVoice is always false here.
func (p *Provider) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	speechConfig, err := speech.NewSpeechConfigFromEndpoint(p.endpoint, p.subscriptionKey)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/azure: speech config: %w", err)
	}
	defer speechConfig.Close()
	_ = speechConfig.SetSpeechSynthesisOutputFormat(common.Raw16Khz16BitMonoPcm)
	if p.voice != "" {
		_ = speechConfig.SetSpeechSynthesisVoiceName(p.voice)
	}

	synthesizer, err := speech.NewSpeechSynthesizerFromConfig(speechConfig, nil)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/azure: synthesizer: %w", err)
	}
	defer synthesizer.Close()

	task := synthesizer.SpeakTextAsync(text)
	select {
	case outcome := <-task:
		if outcome.Error != nil {
			return ports.SynthesisResult{}, fmt.Errorf("tts/azure: speak text: %w", outcome.Error)
		}
		return ports.SynthesisResult{
			PCM16:      outcome.Result.AudioData,
			SampleRate: 16000,
			UsedVoice:  false,
		}, nil
	case <-time.After(20 * time.Second):
		return ports.SynthesisResult{}, fmt.Errorf("tts/azure: speak text timed out")
	case <-ctx.Done():
		return ports.SynthesisResult{}, ctx.Err()
	}
}
