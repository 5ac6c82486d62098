// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package azure adapts Azure Cognitive Services Speech as a ports.ASR,
// grounded on the subscription_key/endpoint option contract of
// api/assistant-api/internal/transformer/azure/azure_test.go.
package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the Azure Cognitive Services credential pair.
type Config struct {
	SubscriptionKey string
	Endpoint        string
}

// Provider implements ports.ASR by pushing a full PCM16 block through a
// single-shot push-stream recognizer per call.
type Provider struct {
	subscriptionKey string
	endpoint        string
}

// New validates the credential pair.
func New(cfg Config) (*Provider, error) {
	if cfg.SubscriptionKey == "" {
		return nil, fmt.Errorf("asr/azure: illegal config, missing subscription_key")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("asr/azure: illegal config, missing endpoint")
	}
	return &Provider{subscriptionKey: cfg.SubscriptionKey, endpoint: cfg.Endpoint}, nil
}

// Transcribe feeds the PCM16 block into a push-audio-stream recognizer and
// waits for RecognizeOnceAsync to settle.
func (p *Provider) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, languageHint string) (ports.TranscriptionResult, error) {
	speechConfig, err := speech.NewSpeechConfigFromEndpoint(p.endpoint, p.subscriptionKey)
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: speech config: %w", err)
	}
	defer speechConfig.Close()
	if languageHint != "" {
		_ = speechConfig.SetSpeechRecognitionLanguage(languageHint)
	}

	format, err := audio.GetWaveFormatPCM(uint32(sampleRate), 16, 1)
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: wave format: %w", err)
	}
	defer format.Close()

	stream, err := audio.CreatePushAudioInputStreamFromFormat(format)
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: push stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := audio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: audio config: %w", err)
	}
	defer audioConfig.Close()

	recognizer, err := speech.NewSpeechRecognizerFromConfig(speechConfig, audioConfig)
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: recognizer: %w", err)
	}
	defer recognizer.Close()

	if err := stream.Write(pcm16); err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: write audio: %w", err)
	}
	stream.CloseStream()

	task := recognizer.RecognizeOnceAsync()
	select {
	case outcome := <-task:
		if outcome.Error != nil {
			return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: recognize: %w", outcome.Error)
		}
		return ports.TranscriptionResult{
			Text:             outcome.Result.Text,
			DetectedLanguage: languageHint,
			Confidence:       1.0,
		}, nil
	case <-time.After(20 * time.Second):
		return ports.TranscriptionResult{}, fmt.Errorf("asr/azure: recognize timed out")
	case <-ctx.Done():
		return ports.TranscriptionResult{}, ctx.Err()
	}
}
