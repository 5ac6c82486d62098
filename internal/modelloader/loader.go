// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package modelloader implements the Lazy Model Loader: load-on-first-use
// with optional preload and idle unload for the ASR/MT/TTS model services.
// Each tracked model kind runs its own Unloaded->Loading->Ready->Unloading
// state machine via looplab/fsm.
package modelloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/singleflight"

	"github.com/rapidaai/translate/internal/commons"
)

// Kind identifies one of the three logical model services.
type Kind string

const (
	KindASR Kind = "asr"
	KindMT  Kind = "mt"
	KindTTS Kind = "tts"
)

const (
	StateUnloaded  = "unloaded"
	StateLoading   = "loading"
	StateReady     = "ready"
	StateUnloading = "unloading"
)

// LoadFunc performs the actual (possibly slow) model load for kind and
// returns a handle the caller can type-assert, plus an unload callback.
type LoadFunc func(ctx context.Context, kind Kind) (handle interface{}, unload func(), err error)

type modelState struct {
	fsm        *fsm.FSM
	handle     interface{}
	unload     func()
	lastUsedAt time.Time
}

// Loader coordinates lazy loading, concurrent-load coalescing, and
// idle-unload for the three model kinds.
type Loader struct {
	logger commons.Logger
	load   LoadFunc

	idleUnloadAfter time.Duration

	mu     sync.Mutex
	states map[Kind]*modelState
	group  singleflight.Group

	stopIdleSweep chan struct{}
}

// New constructs a Loader. idleUnloadAfter <= 0 disables idle unload.
func New(logger commons.Logger, load LoadFunc, idleUnloadAfter time.Duration) *Loader {
	l := &Loader{
		logger:          logger,
		load:            load,
		idleUnloadAfter: idleUnloadAfter,
		states:          make(map[Kind]*modelState),
		stopIdleSweep:   make(chan struct{}),
	}
	for _, k := range []Kind{KindASR, KindMT, KindTTS} {
		l.states[k] = &modelState{fsm: newModelFSM()}
	}
	if idleUnloadAfter > 0 {
		go l.idleSweepLoop()
	}
	return l
}

func newModelFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateUnloaded,
		fsm.Events{
			{Name: "load", Src: []string{StateUnloaded}, Dst: StateLoading},
			{Name: "ready", Src: []string{StateLoading}, Dst: StateReady},
			{Name: "load_failed", Src: []string{StateLoading}, Dst: StateUnloaded},
			{Name: "unload", Src: []string{StateReady}, Dst: StateUnloading},
			{Name: "unloaded", Src: []string{StateUnloading}, Dst: StateUnloaded},
		},
		fsm.Callbacks{},
	)
}

// Preload loads all three kinds in parallel at startup. Per-kind failures
// are logged but never fail service startup.
func (l *Loader) Preload(ctx context.Context) {
	var wg sync.WaitGroup
	for _, k := range []Kind{KindASR, KindMT, KindTTS} {
		wg.Add(1)
		go func(kind Kind) {
			defer wg.Done()
			if _, err := l.Load(ctx, kind); err != nil {
				l.logger.Warnf("modelloader: preload of %s failed, will retry lazily: %v", kind, err)
			}
		}(k)
	}
	wg.Wait()
}

// Load is idempotent and safe to call concurrently: parallel callers for
// the same kind coalesce onto a single in-flight load via singleflight.
func (l *Loader) Load(ctx context.Context, kind Kind) (interface{}, error) {
	l.mu.Lock()
	st, ok := l.states[kind]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("modelloader: unknown kind %q", kind)
	}
	if st.fsm.Current() == StateReady {
		st.lastUsedAt = time.Now()
		handle := st.handle
		l.mu.Unlock()
		return handle, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(string(kind), func() (interface{}, error) {
		l.mu.Lock()
		st := l.states[kind]
		if st.fsm.Current() == StateReady {
			handle := st.handle
			l.mu.Unlock()
			return handle, nil
		}
		if st.fsm.Current() == StateUnloading || st.fsm.Current() == StateUnloaded {
			_ = st.fsm.Event(context.Background(), "load")
		}
		l.mu.Unlock()

		handle, unload, err := l.load(ctx, kind)

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			_ = st.fsm.Event(context.Background(), "load_failed")
			return nil, err
		}
		st.handle = handle
		st.unload = unload
		st.lastUsedAt = time.Now()
		_ = st.fsm.Event(context.Background(), "ready")
		return handle, nil
	})
	if err != nil {
		return nil, fmt.Errorf("modelloader: load %s: %w", kind, err)
	}
	return v, nil
}

// State reports the current FSM state for a model kind.
func (l *Loader) State(kind Kind) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[kind]
	if !ok {
		return StateUnloaded
	}
	return st.fsm.Current()
}

// Unload idle-unloads a ready model. It is a no-op if the model is not
// currently Ready.
func (l *Loader) Unload(kind Kind) {
	l.mu.Lock()
	st, ok := l.states[kind]
	if !ok || st.fsm.Current() != StateReady {
		l.mu.Unlock()
		return
	}
	unload := st.unload
	_ = st.fsm.Event(context.Background(), "unload")
	l.mu.Unlock()

	if unload != nil {
		unload()
	}

	l.mu.Lock()
	st.handle = nil
	st.unload = nil
	_ = st.fsm.Event(context.Background(), "unloaded")
	l.mu.Unlock()
}

func (l *Loader) idleSweepLoop() {
	ticker := time.NewTicker(l.idleUnloadAfter / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, k := range []Kind{KindASR, KindMT, KindTTS} {
				l.mu.Lock()
				st := l.states[k]
				idle := st.fsm.Current() == StateReady && time.Since(st.lastUsedAt) >= l.idleUnloadAfter
				l.mu.Unlock()
				if idle {
					l.logger.Infof("modelloader: idle-unloading %s after %s", k, l.idleUnloadAfter)
					l.Unload(k)
				}
			}
		case <-l.stopIdleSweep:
			return
		}
	}
}

// Close stops the idle-unload sweep goroutine.
func (l *Loader) Close() {
	select {
	case <-l.stopIdleSweep:
	default:
		close(l.stopIdleSweep)
	}
}
