// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package vad wraps github.com/streamer45/silero-vad-go as a
// pipeline.VADFunc: each aggregated
// PCM16 block is converted to float32 samples and run through the Silero
// ONNX model once, and the block is treated as speech if the detector
// reports any segment.
package vad

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/rapidaai/translate/internal/commons"
)

// Config locates the Silero ONNX model and tunes detection sensitivity.
type Config struct {
	ModelPath            string
	SampleRate           int
	Threshold            float32
	MinSilenceDurationMS int
	SpeechPadMS          int
}

// Detector wraps a single Silero detector instance. The underlying
// detector is not safe for concurrent use, so Detect serializes calls;
// one Detector may be shared by every speaker's Stream Processor.
type Detector struct {
	logger commons.Logger
	mu     sync.Mutex
	sd     *speech.Detector
}

// New loads the Silero ONNX model described by cfg.
func New(logger commons.Logger, cfg Config) (*Detector, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("vad: illegal config, missing model_path")
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 0.5
	}

	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           sampleRate,
		Threshold:            threshold,
		MinSilenceDurationMs: cfg.MinSilenceDurationMS,
		SpeechPadMs:          cfg.SpeechPadMS,
	})
	if err != nil {
		return nil, fmt.Errorf("vad: new detector: %w", err)
	}
	return &Detector{logger: logger, sd: sd}, nil
}

// Func returns a pipeline.VADFunc bound to this Detector.
func (d *Detector) Func() func(pcm16 []byte, sampleRate int) bool {
	return d.Detect
}

// Detect reports whether pcm16 contains any speech segment, and resets
// the detector's internal state so the next call starts fresh (the
// Stream Processor calls this once per cycle, not as a continuous
// stream).
func (d *Detector) Detect(pcm16 []byte, sampleRate int) bool {
	if len(pcm16) < 2 {
		return false
	}
	samples := pcm16ToFloat32(pcm16)
	d.mu.Lock()
	defer d.mu.Unlock()
	segments, err := d.sd.Detect(samples)
	if err != nil {
		d.logger.Warnf("vad: detect failed, treating block as speech: %v", err)
		return true
	}
	if resetErr := d.sd.Reset(); resetErr != nil {
		d.logger.Warnf("vad: reset failed: %v", resetErr)
	}
	return len(segments) > 0
}

// Close releases the ONNX runtime session.
func (d *Detector) Close() error {
	return d.sd.Destroy()
}

func pcm16ToFloat32(pcm16 []byte) []float32 {
	n := len(pcm16) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm16[i*2:]))
		out[i] = float32(sample) / math.MaxInt16
	}
	return out
}
