// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package anthropic adapts Claude (github.com/anthropics/anthropic-sdk-go)
// as a ports.MT.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the Anthropic API key and model name.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements ports.MT against the Claude Messages API.
type Provider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New constructs a Claude-backed Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mt/anthropic: illegal config, missing api key")
	}
	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaude3_5HaikuLatest
	}
	return &Provider{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: 1024,
	}, nil
}

var _ ports.MT = (*Provider)(nil)

// Translate issues a single Messages.New call constrained to return only
// the translated sentence.
func (p *Provider) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: fmt.Sprintf(
				"You are a real-time speech translator. Translate from %s to %s. Reply with the translation only, no commentary.",
				srcLang, tgtLang,
			)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("mt/anthropic: messages.new: %w", err)
	}
	var out strings.Builder
	for _, block := range msg.Content {
		if block.Text != "" {
			out.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}
