// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package deepgram adapts Deepgram's prerecorded /v1/listen endpoint as a
// ports.ASR. The option names (model, language, punctuate, smart_format,
// encoding, sample_rate) mirror
// api/assistant-api/internal/transformer/deepgram's option contract.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/translate/internal/ports"
)

const listenURL = "https://api.deepgram.com/v1/listen"

// Config carries the Deepgram API key and default recognition options.
type Config struct {
	APIKey      string
	Model       string
	SmartFormat bool
	Punctuate   bool
}

// Provider implements ports.ASR against Deepgram's prerecorded REST API.
type Provider struct {
	client *resty.Client
	cfg    Config
}

// New validates the API key and returns a Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("asr/deepgram: illegal config, missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	client := resty.New().
		SetHeader("Authorization", "Token "+cfg.APIKey).
		SetHeader("Content-Type", "audio/raw")
	return &Provider{client: client, cfg: cfg}, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
			DetectedLanguage string `json:"detected_language"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts the aggregated PCM16 block to Deepgram and returns the
// first channel's top alternative.
func (p *Provider) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, languageHint string) (ports.TranscriptionResult, error) {
	req := p.client.R().
		SetContext(ctx).
		SetQueryParam("model", p.cfg.Model).
		SetQueryParam("encoding", "linear16").
		SetQueryParam("sample_rate", fmt.Sprintf("%d", sampleRate)).
		SetQueryParam("smart_format", fmt.Sprintf("%t", p.cfg.SmartFormat)).
		SetQueryParam("punctuate", fmt.Sprintf("%t", p.cfg.Punctuate)).
		SetBody(pcm16)
	if languageHint != "" {
		req.SetQueryParam("language", languageHint)
	} else {
		req.SetQueryParam("detect_language", "true")
	}

	resp, err := req.Post(listenURL)
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/deepgram: request failed: %w", err)
	}
	if resp.IsError() {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/deepgram: listen returned %s: %s", resp.Status(), resp.String())
	}

	var parsed listenResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/deepgram: decode response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return ports.TranscriptionResult{DetectedLanguage: languageHint}, nil
	}

	ch := parsed.Results.Channels[0]
	alt := ch.Alternatives[0]
	detected := ch.DetectedLanguage
	if detected == "" {
		detected = languageHint
	}
	return ports.TranscriptionResult{
		Text:             alt.Transcript,
		DetectedLanguage: detected,
		Confidence:       alt.Confidence,
	}, nil
}
