// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package resampler bridges PCM16 between the service's fixed wire
// input/output rates and whatever native rate a given ASR/TTS provider
// actually speaks, the same resample-at-the-edge role
// api/assistant-api/internal/channel/webrtc/streamer.go gives its
// internal_audio_resampler.AudioResampler when bridging WebRTC's 48kHz
// Opus track to the 16kHz internal audio config. That concrete resampler
// package was not part of the retrieved pack, so this adapter is built
// directly on github.com/tphakala/go-audio-resampler, with the same
// Resample(pcm, fromRate, toRate) shape the caller above expects.
package resampler

import (
	"encoding/binary"
	"fmt"

	goresampler "github.com/tphakala/go-audio-resampler"
)

// Resampler converts PCM16 mono audio between sample rates.
type Resampler interface {
	Resample(pcm16 []byte, fromRate, toRate int) ([]byte, error)
}

type linearResampler struct{}

// New returns the default Resampler.
func New() Resampler {
	return &linearResampler{}
}

func (l *linearResampler) Resample(pcm16 []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("resampler: illegal rates %d->%d", fromRate, toRate)
	}
	if fromRate == toRate || len(pcm16) < 2 {
		return pcm16, nil
	}

	samples := bytesToInt16(pcm16)
	rs := goresampler.New(fromRate, toRate)
	out := rs.Resample(samples)
	return int16ToBytes(out), nil
}

func bytesToInt16(pcm16 []byte) []int16 {
	n := len(pcm16) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(pcm16[i*2:]))
	}
	return out
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
