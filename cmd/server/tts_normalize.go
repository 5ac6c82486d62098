// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"

	"github.com/rapidaai/translate/internal/config"
	"github.com/rapidaai/translate/internal/ports"
	"github.com/rapidaai/translate/internal/providers/normalizers"
	"github.com/rapidaai/translate/internal/providers/resampler"
)

// wrapTTS composes the normalization and resampling layers around a
// vendor TTS adapter: text is normalized before synthesis, audio is
// rebased onto the configured wire output rate after.
func wrapTTS(inner ports.TTS, cfg *config.AppConfig, pipeline []normalizers.Normalizer, r resampler.Resampler) ports.TTS {
	return newNormalizingTTS(newResamplingTTS(inner, r, cfg.Audio.OutputSampleRate), pipeline)
}

// normalizingTTS runs the text-normalization pipeline in front of any
// vendor TTS adapter, so every vendor benefits from the same
// digit/currency/date/symbol spell-out regardless of what its own API
// does or does not support natively.
type normalizingTTS struct {
	inner      ports.TTS
	normalizer []normalizers.Normalizer
}

func newNormalizingTTS(inner ports.TTS, pipeline []normalizers.Normalizer) ports.TTS {
	if len(pipeline) == 0 {
		return inner
	}
	return &normalizingTTS{inner: inner, normalizer: pipeline}
}

func (n *normalizingTTS) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	return n.inner.Synthesize(ctx, normalizers.Apply(n.normalizer, text), language, voiceRef)
}

// resamplingTTS rebases every vendor's native output sample rate onto the
// service's single wire output rate, since listeners expect every
// translation frame at the same rate regardless of which vendor produced
// it.
type resamplingTTS struct {
	inner      ports.TTS
	resampler  resampler.Resampler
	outputRate int
}

func newResamplingTTS(inner ports.TTS, r resampler.Resampler, outputRate int) ports.TTS {
	if outputRate <= 0 {
		return inner
	}
	return &resamplingTTS{inner: inner, resampler: r, outputRate: outputRate}
}

func (r *resamplingTTS) Synthesize(ctx context.Context, text, language string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	result, err := r.inner.Synthesize(ctx, text, language, voiceRef)
	if err != nil || result.SampleRate == r.outputRate || result.SampleRate <= 0 {
		return result, err
	}
	out, rsErr := r.resampler.Resample(result.PCM16, result.SampleRate, r.outputRate)
	if rsErr != nil {
		return result, nil
	}
	result.PCM16 = out
	result.SampleRate = r.outputRate
	return result, nil
}
