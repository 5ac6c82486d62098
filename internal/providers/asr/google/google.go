// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package google adapts Google Cloud Speech-to-Text v1 as a ports.ASR,
// following the option-builder idiom of
// api/assistant-api/internal/transformer/google/google.go (client options
// built once, request config rebuilt per call from the caller's language
// hint).
package google

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/rapidaai/translate/internal/ports"
)

const defaultLanguageCode = "en-US"

// Config carries the Google Cloud credential material. Exactly one of
// APIKey or CredentialsJSON should be set.
type Config struct {
	APIKey          string
	CredentialsJSON []byte
	Model           string
}

// Provider implements ports.ASR against the Google Speech v1 Recognize RPC.
type Provider struct {
	client *speech.Client
	model  string
}

// New dials the Google Speech client. The returned Provider owns the
// client and must be Closed.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	default:
		return nil, fmt.Errorf("asr/google: no credentials configured")
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("asr/google: dial client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "latest_long"
	}
	return &Provider{client: client, model: model}, nil
}

// Transcribe sends one aggregated PCM16 block to Recognize and returns the
// top alternative of the first result.
func (p *Provider) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, languageHint string) (ports.TranscriptionResult, error) {
	if languageHint == "" {
		languageHint = defaultLanguageCode
	}

	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRate),
			LanguageCode:               languageHint,
			Model:                      p.model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm16},
		},
	})
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/google: recognize: %w", err)
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		return ports.TranscriptionResult{DetectedLanguage: languageHint}, nil
	}

	alt := resp.Results[0].Alternatives[0]
	return ports.TranscriptionResult{
		Text:             alt.Transcript,
		DetectedLanguage: languageHint,
		Confidence:       float64(alt.Confidence),
	}, nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	return p.client.Close()
}
