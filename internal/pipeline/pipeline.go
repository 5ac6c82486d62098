// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pipeline implements the Stream Processor: one instance per
// speaking Connection, draining that speaker's ChunkBuffer on a fixed
// cycle, running ASR -> per-listener MT -> per-listener TTS, and fanning
// the result out to every other room member. Grounded on the
// buffered-audio-window and per-mode-dispatch shape of the retrieval
// pack's meeting-websocket handler, restructured around this service's
// own Connection/ConnectionManager/ModelLoader/TranslationCache types and
// a looplab/fsm state-machine idiom.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/rapidaai/translate/internal/commons"
	"github.com/rapidaai/translate/internal/config"
	"github.com/rapidaai/translate/internal/connection"
	"github.com/rapidaai/translate/internal/modelloader"
	"github.com/rapidaai/translate/internal/ports"
	"github.com/rapidaai/translate/internal/translationcache"
)

// Processor FSM states.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateStopping = "stopping"
	StateStopped  = "stopped"
)

// Hub is the slice of *connection.Manager a Processor needs: resolving a
// room's current membership and delivering a framed message to one user.
// Declared narrowly so tests can stub it without a live WebSocket.
type Hub interface {
	GetRoomUsers(roomID string) []string
	Get(userID string) (*connection.Connection, bool)
	Send(userID string, message []byte) bool
}

// VADFunc optionally gates a block before it reaches ASR. A nil VADFunc
// means every non-empty block is treated as speech.
type VADFunc func(pcm16 []byte, sampleRate int) bool

// TranscriptMessage is echoed back to the speaker for live captioning.
type TranscriptMessage struct {
	Type      string `json:"type"`
	SpeakerID string `json:"speaker_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
}

// AudioPayload is the nested wire shape for synthesized audio: fixed
// encoding/sample rate so a client never has to branch on vendor.
type AudioPayload struct {
	Data       []byte `json:"data"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// TranslationMessage is delivered to each listener as translated_audio.
// Audio is omitted (marshals to null) when synthesis failed or was
// skipped, and VoiceFallback is true whenever no cloned-voice reference
// was available or honored.
type TranslationMessage struct {
	Type             string        `json:"type"`
	SpeakerID        string        `json:"speaker_id"`
	ListenerID       string        `json:"listener_id"`
	Text             string        `json:"text"`
	OriginalText     string        `json:"original_text"`
	DetectedLanguage string        `json:"detected_language"`
	SourceLang       string        `json:"source_lang"`
	TargetLang       string        `json:"target_lang"`
	Audio            *AudioPayload `json:"audio,omitempty"`
	VoiceFallback    bool          `json:"voice_fallback"`
	Seq              uint64        `json:"seq"`
	Timestamp        int64         `json:"timestamp"`
}

// ErrorMessage reports an unavailable or failed ASR stage to the speaker
// only; that cycle's block is dropped and the Processor keeps running.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Processor is the per-speaker Stream Processor.
type Processor struct {
	logger commons.Logger
	hub    Hub
	self   *connection.Connection

	loader *modelloader.Loader
	cache  *translationcache.Cache
	voices ports.VoiceProfileStore
	vad    VADFunc

	cycleInterval time.Duration
	minBlock      time.Duration
	maxBlock      time.Duration
	cycleDeadline time.Duration
	inputRate     int

	machine *fsm.FSM

	seqMu sync.Mutex
	seq   map[string]uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Processor for one speaking Connection. vad may be nil.
func New(
	logger commons.Logger,
	hub Hub,
	self *connection.Connection,
	loader *modelloader.Loader,
	cache *translationcache.Cache,
	voices ports.VoiceProfileStore,
	vad VADFunc,
	pipelineCfg config.PipelineConfig,
	audioCfg config.AudioConfig,
) *Processor {
	return &Processor{
		logger:        logger,
		hub:           hub,
		self:          self,
		loader:        loader,
		cache:         cache,
		voices:        voices,
		vad:           vad,
		cycleInterval: time.Duration(pipelineCfg.CycleIntervalMS) * time.Millisecond,
		minBlock:      time.Duration(pipelineCfg.MinBlockDurationMS) * time.Millisecond,
		maxBlock:      time.Duration(pipelineCfg.MaxBlockDurationMS) * time.Millisecond,
		cycleDeadline: time.Duration(pipelineCfg.CycleDeadlineMS) * time.Millisecond,
		inputRate:     audioCfg.InputSampleRate,
		machine:       newProcessorFSM(),
		seq:           make(map[string]uint64),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

func newProcessorFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: "start", Src: []string{StateIdle}, Dst: StateRunning},
			{Name: "stop", Src: []string{StateRunning}, Dst: StateStopping},
			{Name: "stopped", Src: []string{StateStopping}, Dst: StateStopped},
		},
		fsm.Callbacks{},
	)
}

// State reports the Processor's current lifecycle state.
func (p *Processor) State() string { return p.machine.Current() }

// Start transitions Idle->Running and launches the aggregation cycle in
// its own goroutine. Calling Start twice is a no-op.
func (p *Processor) Start(ctx context.Context) {
	if err := p.machine.Event(ctx, "start"); err != nil {
		return
	}
	go p.runLoop(ctx)
}

// Stop transitions Running->Stopping, flushes any pending audio, and
// blocks until the cycle loop has exited. Idempotent.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		_ = p.machine.Event(context.Background(), "stop")
		close(p.stopCh)
	})
	<-p.doneCh
}

func (p *Processor) runLoop(ctx context.Context) {
	defer close(p.doneCh)
	defer func() {
		// A cancelled ctx exits without Stop; "stop" is then still due.
		_ = p.machine.Event(context.Background(), "stop")
		_ = p.machine.Event(context.Background(), "stopped")
	}()

	ticker := time.NewTicker(p.cycleInterval)
	defer ticker.Stop()

	var pending []byte
	var pendingSince time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		block := pending
		pending = nil
		pendingSince = time.Time{}
		p.processBlock(ctx, block)
	}

	// flushMax cuts pending at the max-block byte boundary and retains the
	// remainder for the next cycle, so a single ASR call never exceeds
	// maxBlock even when the speaker never pauses long enough to trip the
	// cycle-deadline path.
	flushMax := func() {
		cut := bytesForDuration(p.maxBlock, p.inputRate)
		if cut <= 0 || cut >= len(pending) {
			flush()
			return
		}
		block := pending[:cut]
		remainder := make([]byte, len(pending)-cut)
		copy(remainder, pending[cut:])
		pending = remainder
		pendingSince = time.Now()
		p.processBlock(ctx, block)
	}

	for {
		select {
		case <-ticker.C:
			if p.self.Muted() {
				// Discard anything buffered while muted; nothing to transcribe.
				p.self.ChunkBuffer.Drain()
				pending = nil
				pendingSince = time.Time{}
				continue
			}

			drained := p.self.ChunkBuffer.Drain()
			if len(drained) > 0 {
				if len(pending) == 0 {
					pendingSince = time.Now()
				}
				pending = append(pending, drained...)
			}
			if len(pending) == 0 {
				continue
			}

			dur := pcmDuration(len(pending), p.inputRate)
			switch {
			case dur >= p.maxBlock:
				flushMax()
			case dur >= p.minBlock && time.Since(pendingSince) >= p.cycleDeadline:
				flush()
			}

		case <-p.stopCh:
			flush()
			return

		case <-ctx.Done():
			return
		}
	}
}

// pcmDuration computes the playback duration of a mono 16-bit PCM buffer.
func pcmDuration(nBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := nBytes / 2
	seconds := float64(samples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// bytesForDuration is pcmDuration's inverse: the byte offset, rounded down
// to a whole sample, at which a mono 16-bit PCM buffer reaches d.
func bytesForDuration(d time.Duration, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	samples := int(d.Seconds() * float64(sampleRate))
	return samples * 2
}

// processBlock runs one speaker's aggregated block through ASR, then
// independently through MT/TTS for every other room member. A failure at
// any one listener's MT/TTS stage never prevents delivery to the others.
func (p *Processor) processBlock(ctx context.Context, pcm16 []byte) {
	if p.vad != nil && !p.vad(pcm16, p.inputRate) {
		return
	}

	inputLang, _ := p.self.Languages()

	asr, err := p.loadASR(ctx)
	if err != nil {
		p.sendError("asr_unavailable", err)
		return
	}

	result, err := asr.Transcribe(ctx, pcm16, p.inputRate, inputLang)
	if err != nil {
		p.logger.Warnf("pipeline: asr failed for speaker %s: %v", p.self.UserID, err)
		p.sendError("asr_failed", err)
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" || isTrivialUtterance(text) {
		return
	}
	sourceLang := inputLang
	if result.DetectedLanguage != "" {
		sourceLang = result.DetectedLanguage
	}

	p.hub.Send(p.self.UserID, marshalOrNil(TranscriptMessage{
		Type:      "partial_transcript",
		SpeakerID: p.self.UserID,
		Text:      text,
		Language:  sourceLang,
		Seq:       p.nextSeq(p.self.UserID),
		Timestamp: time.Now().UnixMilli(),
	}))

	for _, listenerID := range p.hub.GetRoomUsers(p.self.RoomID) {
		if listenerID == p.self.UserID {
			continue
		}
		listener, ok := p.hub.Get(listenerID)
		if !ok {
			continue
		}
		_, targetLang := listener.Languages()
		p.deliverToListener(ctx, listenerID, text, sourceLang, targetLang)
	}
}

// trivialTokens are ASR hiccups on silence/noise: an utterance consisting
// of nothing but one of these is dropped same as an empty transcript.
var trivialTokens = map[string]bool{
	"…": true,
	".": true,
	",": true,
	"?": true,
	"!": true,
}

// isTrivialUtterance filters out whitespace-only and single-punctuation
// noise transcripts that are not worth translating.
func isTrivialUtterance(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return true
	}
	if len(fields) == 1 && trivialTokens[fields[0]] {
		return true
	}
	return false
}

func (p *Processor) deliverToListener(ctx context.Context, listenerID, text, sourceLang, targetLang string) {
	translated := text
	if !sameLanguage(sourceLang, targetLang) {
		if cached, ok := p.cache.Get(ctx, text, sourceLang, targetLang); ok {
			translated = cached
		} else {
			mt, err := p.loadMT(ctx)
			if err != nil {
				p.logger.Warnf("pipeline: mt model unavailable for %s: %v", listenerID, err)
				return
			}
			out, err := mt.Translate(ctx, text, sourceLang, targetLang)
			if err != nil {
				p.logger.Warnf("pipeline: mt failed speaker=%s listener=%s: %v", p.self.UserID, listenerID, err)
				return
			}
			translated = out
			p.cache.Put(ctx, text, sourceLang, targetLang, translated)
		}
	}

	var voiceRef *ports.VoiceReference
	if p.voices != nil {
		if profile, err := p.voices.Get(ctx, p.self.UserID); err != nil {
			p.logger.Warnf("pipeline: voice profile lookup failed for %s: %v", p.self.UserID, err)
		} else if profile != nil {
			voiceRef = &ports.VoiceReference{Path: profile.ReferenceAudioPath, Language: targetLang}
		}
	}

	tts, err := p.loadTTS(ctx)
	if err != nil {
		p.logger.Warnf("pipeline: tts model unavailable for %s: %v", listenerID, err)
		p.sendTranslationTextOnly(listenerID, text, translated, sourceLang, targetLang)
		return
	}

	synth, err := tts.Synthesize(ctx, translated, targetLang, voiceRef)
	if err != nil {
		p.logger.Warnf("pipeline: tts failed speaker=%s listener=%s: %v", p.self.UserID, listenerID, err)
		p.sendTranslationTextOnly(listenerID, text, translated, sourceLang, targetLang)
		return
	}

	p.hub.Send(listenerID, marshalOrNil(TranslationMessage{
		Type:             "translated_audio",
		SpeakerID:        p.self.UserID,
		ListenerID:       listenerID,
		Text:             translated,
		OriginalText:     text,
		DetectedLanguage: sourceLang,
		SourceLang:       sourceLang,
		TargetLang:       targetLang,
		Audio: &AudioPayload{
			Data:       synth.PCM16,
			Encoding:   "pcm_s16le",
			SampleRate: synth.SampleRate,
		},
		VoiceFallback: !synth.UsedVoice,
		Seq:           p.nextSeq(listenerID),
		Timestamp:     time.Now().UnixMilli(),
	}))
}

func (p *Processor) sendTranslationTextOnly(listenerID, originalText, text, sourceLang, targetLang string) {
	p.hub.Send(listenerID, marshalOrNil(TranslationMessage{
		Type:             "translated_audio",
		SpeakerID:        p.self.UserID,
		ListenerID:       listenerID,
		Text:             text,
		OriginalText:     originalText,
		DetectedLanguage: sourceLang,
		SourceLang:       sourceLang,
		TargetLang:       targetLang,
		VoiceFallback:    true,
		Seq:              p.nextSeq(listenerID),
		Timestamp:        time.Now().UnixMilli(),
	}))
}

func sameLanguage(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (p *Processor) loadASR(ctx context.Context) (ports.ASR, error) {
	handle, err := p.loader.Load(ctx, modelloader.KindASR)
	if err != nil {
		return nil, err
	}
	asr, ok := handle.(ports.ASR)
	if !ok {
		return nil, fmt.Errorf("pipeline: asr handle does not implement ports.ASR")
	}
	return asr, nil
}

func (p *Processor) loadMT(ctx context.Context) (ports.MT, error) {
	handle, err := p.loader.Load(ctx, modelloader.KindMT)
	if err != nil {
		return nil, err
	}
	mt, ok := handle.(ports.MT)
	if !ok {
		return nil, fmt.Errorf("pipeline: mt handle does not implement ports.MT")
	}
	return mt, nil
}

func (p *Processor) loadTTS(ctx context.Context) (ports.TTS, error) {
	handle, err := p.loader.Load(ctx, modelloader.KindTTS)
	if err != nil {
		return nil, err
	}
	tts, ok := handle.(ports.TTS)
	if !ok {
		return nil, fmt.Errorf("pipeline: tts handle does not implement ports.TTS")
	}
	return tts, nil
}

func (p *Processor) sendError(code string, err error) {
	p.hub.Send(p.self.UserID, marshalOrNil(ErrorMessage{
		Type:    "error",
		Code:    code,
		Message: err.Error(),
	}))
}

// nextSeq returns the next monotonic sequence number for the
// (speaker, listener) pair this Processor is delivering to, keyed by
// listener since one Processor instance already fixes the speaker side.
func (p *Processor) nextSeq(listenerID string) uint64 {
	p.seqMu.Lock()
	defer p.seqMu.Unlock()
	p.seq[listenerID]++
	return p.seq[listenerID]
}

func marshalOrNil(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
