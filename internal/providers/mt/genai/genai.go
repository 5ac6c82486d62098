// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package genai adapts Google's Gemini models (google.golang.org/genai) as
// a ports.MT: translation is framed as a single-turn generation request
// with a strict system instruction to return only the translated text.
package genai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rapidaai/translate/internal/commons"
)

// Config carries the Gemini API key and model name.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements ports.MT against the Gemini generateContent API.
type Provider struct {
	client *genai.Client
	model  string
	logger commons.Logger
}

// New constructs a Gemini-backed Provider.
func New(ctx context.Context, logger commons.Logger, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mt/genai: illegal config, missing api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("mt/genai: client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Provider{client: client, model: model, logger: logger}, nil
}

// Translate issues a single generateContent call constrained to return
// only the translated sentence, trimming any wrapping quotes or
// whitespace the model tends to add.
func (p *Provider) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, no quotes, no commentary.\n\n%s",
		srcLang, tgtLang, text,
	)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("mt/genai: generate content: %w", err)
	}
	out := resp.Text()
	if out == "" {
		p.logger.Warnf("mt/genai: empty translation for %q->%q", srcLang, tgtLang)
	}
	return strings.Trim(strings.TrimSpace(out), "\"'"), nil
}
