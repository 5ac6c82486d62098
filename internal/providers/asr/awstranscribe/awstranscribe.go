// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package awstranscribe adapts Amazon Transcribe's streaming API as a
// ports.ASR: one aggregated block is sent as a single AudioEvent and the
// stream is closed immediately after, collapsing the streaming transcript
// into the single blocking result the rest of the pipeline expects.
package awstranscribe

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/transcribestreamingservice"

	"github.com/rapidaai/translate/internal/ports"
)

// Config carries the AWS region and optional static credentials; when
// AccessKeyID is empty the default credential chain (env, shared config,
// instance role) is used.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Provider implements ports.ASR against Amazon Transcribe streaming.
type Provider struct {
	svc *transcribestreamingservice.TranscribeStreamingService
}

// New builds an AWS session and Transcribe Streaming client.
func New(cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("asr/awstranscribe: illegal config, missing region")
	}
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("asr/awstranscribe: session: %w", err)
	}
	return &Provider{svc: transcribestreamingservice.New(sess)}, nil
}

// Transcribe opens a transcription stream, writes the whole block as one
// AudioEvent, and folds the resulting transcript events into one string.
func (p *Provider) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, languageHint string) (ports.TranscriptionResult, error) {
	if languageHint == "" {
		languageHint = "en-US"
	}

	out, err := p.svc.StartStreamTranscriptionWithContext(ctx, &transcribestreamingservice.StartStreamTranscriptionInput{
		LanguageCode:         aws.String(languageHint),
		MediaEncoding:        aws.String(transcribestreamingservice.MediaEncodingPcm),
		MediaSampleRateHertz: aws.Int64(int64(sampleRate)),
	})
	if err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/awstranscribe: start stream: %w", err)
	}
	stream := out.GetStream()
	defer stream.Close()

	if err := stream.Send(ctx, &transcribestreamingservice.AudioEvent{AudioChunk: pcm16}); err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/awstranscribe: send audio: %w", err)
	}
	if err := stream.Send(ctx, &transcribestreamingservice.AudioEvent{AudioChunk: []byte{}}); err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/awstranscribe: send end-of-stream: %w", err)
	}

	var transcript string
	for event := range stream.Events() {
		te, ok := event.(*transcribestreamingservice.TranscriptEvent)
		if !ok || te.Transcript == nil {
			continue
		}
		for _, result := range te.Transcript.Results {
			if result.IsPartial != nil && *result.IsPartial {
				continue
			}
			if len(result.Alternatives) > 0 && result.Alternatives[0].Transcript != nil {
				transcript = *result.Alternatives[0].Transcript
			}
		}
	}
	if err := stream.Err(); err != nil {
		return ports.TranscriptionResult{}, fmt.Errorf("asr/awstranscribe: stream: %w", err)
	}

	return ports.TranscriptionResult{
		Text:             transcript,
		DetectedLanguage: languageHint,
		Confidence:       1.0,
	}, nil
}
