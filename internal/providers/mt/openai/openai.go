// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package openai adapts OpenAI chat completions (github.com/openai/openai-go)
// as a ports.MT.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the OpenAI API key and model name.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements ports.MT against OpenAI's chat completions API.
type Provider struct {
	client openai.Client
	model  openai.ChatModel
}

// New constructs an OpenAI-backed Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mt/openai: illegal config, missing api key")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Provider{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  openai.ChatModel(model),
	}, nil
}

var _ ports.MT = (*Provider)(nil)

// Translate issues a single chat completion constrained to return only
// the translated sentence.
func (p *Provider) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(
				"You are a real-time speech translator. Translate from %s to %s. Reply with the translation only.",
				srcLang, tgtLang,
			)),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("mt/openai: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("mt/openai: no completion choices returned")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
