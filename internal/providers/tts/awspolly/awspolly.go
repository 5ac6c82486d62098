// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package awspolly adapts Amazon Polly (aws-sdk-go) as a ports.TTS.
package awspolly

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the AWS region, optional static credentials, and
// default voice id.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	VoiceID         string
}

// Provider implements ports.TTS against Amazon Polly's SynthesizeSpeech.
type Provider struct {
	svc     *polly.Polly
	voiceID string
}

// New builds an AWS session and Polly client.
func New(cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("tts/awspolly: illegal config, missing region")
	}
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("tts/awspolly: session: %w", err)
	}
	voiceID := cfg.VoiceID
	if voiceID == "" {
		voiceID = polly.VoiceIdJoanna
	}
	return &Provider{svc: polly.New(sess), voiceID: voiceID}, nil
}

var _ ports.TTS = (*Provider)(nil)

// Synthesize requests raw 16-bit PCM output at 16kHz; Polly's stock
// voices do not accept a reference sample, so voiceRef is ignored and
// UsedVoice is always false.
func (p *Provider) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	out, err := p.svc.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		TextType:     aws.String(polly.TextTypeText),
		OutputFormat: aws.String(polly.OutputFormatPcm),
		SampleRate:   aws.String("16000"),
		VoiceId:      aws.String(p.voiceID),
		LanguageCode: aws.String(language),
	})
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/awspolly: synthesize speech: %w", err)
	}
	defer out.AudioStream.Close()

	pcm, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return ports.SynthesisResult{}, fmt.Errorf("tts/awspolly: read audio stream: %w", err)
	}
	return ports.SynthesisResult{
		PCM16:      pcm,
		SampleRate: 16000,
		UsedVoice:  false,
	}, nil
}
