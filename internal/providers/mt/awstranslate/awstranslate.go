// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package awstranslate adapts Amazon Translate (aws-sdk-go) as a ports.MT.
package awstranslate

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/translate"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the AWS region and optional static credentials.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Provider implements ports.MT against the Amazon Translate TranslateText
// API, a plain request/response call unlike its streaming ASR sibling.
type Provider struct {
	svc *translate.Translate
}

// New builds an AWS session and Translate client.
func New(cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("mt/awstranslate: illegal config, missing region")
	}
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("mt/awstranslate: session: %w", err)
	}
	return &Provider{svc: translate.New(sess)}, nil
}

var _ ports.MT = (*Provider)(nil)

// Translate calls TranslateText directly; BCP-47-ish tags are passed
// through as Amazon Translate language codes.
func (p *Provider) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	out, err := p.svc.TranslateTextWithContext(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(srcLang),
		TargetLanguageCode: aws.String(tgtLang),
	})
	if err != nil {
		return "", fmt.Errorf("mt/awstranslate: translate text: %w", err)
	}
	return aws.StringValue(out.TranslatedText), nil
}
