// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package ratelimit implements optional per-connection caps: a
// chunks/second limiter and a bytes/minute limiter, each backed by
// golang.org/x/time/rate token buckets.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter bounds one connection's audio_chunk ingestion rate.
type Limiter struct {
	chunks *rate.Limiter
	bytes  *rate.Limiter
}

// New builds a Limiter. chunksPerSecond <= 0 disables the chunk cap;
// bytesPerMinute <= 0 disables the byte cap.
func New(chunksPerSecond, bytesPerMinute int) *Limiter {
	l := &Limiter{}
	if chunksPerSecond > 0 {
		l.chunks = rate.NewLimiter(rate.Limit(chunksPerSecond), chunksPerSecond)
	}
	if bytesPerMinute > 0 {
		perSecond := float64(bytesPerMinute) / 60.0
		l.bytes = rate.NewLimiter(rate.Limit(perSecond), bytesPerMinute)
	}
	return l
}

// Allow reports whether one audio_chunk frame of the given byte length may
// be accepted right now. Both budgets are checked; either capacity check
// consumes its allotted token even if the other subsequently rejects the
// frame, matching a simple "log and drop" policy rather than rollback.
func (l *Limiter) Allow(size int) bool {
	ok := true
	if l.chunks != nil && !l.chunks.Allow() {
		ok = false
	}
	if l.bytes != nil && !l.bytes.AllowN(time.Now(), size) {
		ok = false
	}
	return ok
}
