// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package cohere adapts Cohere Chat (github.com/cohere-ai/cohere-go/v2) as
// a ports.MT.
package cohere

import (
	"context"
	"fmt"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the Cohere API key and model name.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements ports.MT against the Cohere Chat API.
type Provider struct {
	client *cohereclient.Client
	model  string
}

// New constructs a Cohere-backed Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mt/cohere: illegal config, missing api key")
	}
	model := cfg.Model
	if model == "" {
		model = "command-r"
	}
	return &Provider{
		client: cohereclient.NewClient(cohereclient.WithToken(cfg.APIKey)),
		model:  model,
	}, nil
}

var _ ports.MT = (*Provider)(nil)

// Translate issues a single Chat call with a translation preamble and
// returns the generated reply text.
func (p *Provider) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	preamble := fmt.Sprintf(
		"You are a real-time speech translator. Translate from %s to %s. Reply with the translation only.",
		srcLang, tgtLang,
	)
	model := p.model
	resp, err := p.client.Chat(ctx, &cohere.ChatRequest{
		Message:  text,
		Preamble: &preamble,
		Model:    &model,
	})
	if err != nil {
		return "", fmt.Errorf("mt/cohere: chat: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
