package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/translate/internal/commons"
	"github.com/rapidaai/translate/internal/config"
	"github.com/rapidaai/translate/internal/connection"
	"github.com/rapidaai/translate/internal/modelloader"
	"github.com/rapidaai/translate/internal/ports"
	"github.com/rapidaai/translate/internal/translationcache"
)

type stubUserDirectory struct{}

func (stubUserDirectory) Get(ctx context.Context, userID string) (ports.UserInfo, error) {
	return ports.UserInfo{UserID: userID, Username: userID, FullName: userID}, nil
}

// dialPair spins up a real WebSocket server/client pair, the same helper
// shape internal/connection's manager_test.go uses, so Processor tests
// exercise a real *connection.Connection rather than a hand-rolled fake.
func dialPair(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var serverConn *websocket.Conn
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn = c
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return serverConn, func() {
		_ = clientConn.Close()
		srv.Close()
	}
}

func newTestManager(t *testing.T) *connection.Manager {
	return connection.NewManager(commons.NewTestLogger(), stubUserDirectory{}, 8, 50, nil)
}

func connectUser(t *testing.T, m *connection.Manager, userID, roomID, input, output string) *connection.Connection {
	ws, cleanup := dialPair(t)
	t.Cleanup(cleanup)
	return m.Connect(userID, roomID, ws, input, output)
}

// stubASR always returns the same transcript/detected language regardless
// of input, and counts invocations.
type stubASR struct {
	calls      atomic.Int32
	text       string
	detected   string
	err        error
}

func (s *stubASR) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, hint string) (ports.TranscriptionResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return ports.TranscriptionResult{}, s.err
	}
	return ports.TranscriptionResult{Text: s.text, DetectedLanguage: s.detected, Confidence: 1}, nil
}

// stubMT counts every Translate call, and fails every call when err is set
// for tests that need an error.
type stubMT struct {
	calls atomic.Int32
	err   error
}

func (s *stubMT) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "[" + tgt + "] " + text, nil
}

// stubTTS reports whether the caller asked for a voice reference, so tests
// can assert voice_fallback is set honestly.
type stubTTS struct {
	calls atomic.Int32
	err   error
}

func (s *stubTTS) Synthesize(ctx context.Context, text, lang string, voiceRef *ports.VoiceReference) (ports.SynthesisResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return ports.SynthesisResult{}, s.err
	}
	return ports.SynthesisResult{PCM16: []byte(text), SampleRate: 22050, UsedVoice: voiceRef != nil}, nil
}

type stubVoiceStore struct {
	profile *ports.VoiceProfile
}

func (s stubVoiceStore) Get(ctx context.Context, userID string) (*ports.VoiceProfile, error) {
	return s.profile, nil
}

func testLoader(asr ports.ASR, mt ports.MT, tts ports.TTS) *modelloader.Loader {
	return modelloader.New(commons.NewTestLogger(), func(ctx context.Context, kind modelloader.Kind) (interface{}, func(), error) {
		switch kind {
		case modelloader.KindASR:
			return asr, func() {}, nil
		case modelloader.KindMT:
			return mt, func() {}, nil
		case modelloader.KindTTS:
			return tts, func() {}, nil
		}
		return nil, nil, nil
	}, 0)
}

func testCache(t *testing.T) *translationcache.Cache {
	c, err := translationcache.New(commons.NewTestLogger(), 100, time.Minute, nil)
	require.NoError(t, err)
	return c
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		CycleIntervalMS:     500,
		MinBlockDurationMS:  200,
		MaxBlockDurationMS:  3000,
		CycleDeadlineMS:     3000,
		ChunkBufferMaxBytes: 1 << 20,
	}
}

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{InputSampleRate: 16000, OutputSampleRate: 22050}
}

func TestSameLanguagePassthroughSkipsTranslation(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "pt")

	asr := &stubASR{text: "Olá mundo", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())
	p.processBlock(context.Background(), make([]byte, 6400))

	assert.Equal(t, int32(0), mt.calls.Load(), "same-language listener must never invoke MT")

	select {
	case raw := <-listener.Outbound():
		var msg TranslationMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "translated_audio", msg.Type)
		assert.Equal(t, "Olá mundo", msg.Text)
		assert.Equal(t, msg.Text, msg.OriginalText, "same-language passthrough must have text == original_text")
		assert.Equal(t, "pt", msg.DetectedLanguage)
		assert.Equal(t, "pt", msg.SourceLang)
		assert.Equal(t, "pt", msg.TargetLang)
	default:
		t.Fatal("expected listener to receive a translated_audio message")
	}
}

func TestCrossLanguageFanOutUsesCachePerUniquePair(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	l1 := connectUser(t, m, "l1", "r1", "en", "en")
	l2 := connectUser(t, m, "l2", "r1", "es", "es")

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())

	p.processBlock(context.Background(), make([]byte, 6400))

	assert.Equal(t, int32(2), mt.calls.Load(), "one MT call per unique (src,tgt) pair")

	for _, l := range []*connection.Connection{l1, l2} {
		select {
		case raw := <-l.Outbound():
			assert.NotEmpty(t, raw)
		default:
			t.Fatalf("expected listener %s to receive a message", l.UserID)
		}
	}

	// A second cycle with the identical text/src/tgt pair must hit the cache
	// rather than invoking MT again.
	mt.calls.Store(0)
	p.processBlock(context.Background(), make([]byte, 6400))
	assert.Equal(t, int32(0), mt.calls.Load(), "repeated (text,src,tgt) must be served from the translation cache")
}

func TestNoiseDropEmitsNothing(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "en")

	asr := &stubASR{text: "...", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())

	for i := 0; i < 10; i++ {
		p.processBlock(context.Background(), make([]byte, 6400))
	}

	assert.Equal(t, int32(0), mt.calls.Load())
	assert.Equal(t, int32(0), tts.calls.Load())
	select {
	case raw := <-listener.Outbound():
		t.Fatalf("expected no message, got %s", raw)
	default:
	}
}

func TestSeqIsStrictlyIncreasingPerListener(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "en")

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())

	var lastSeq uint64
	for i := 0; i < 5; i++ {
		p.processBlock(context.Background(), make([]byte, 6400))
		select {
		case raw := <-listener.Outbound():
			var msg TranslationMessage
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Greater(t, msg.Seq, lastSeq)
			lastSeq = msg.Seq
		default:
			t.Fatalf("expected message on cycle %d", i)
		}
	}
}

func TestVoiceFallbackHonestWhenNoProfile(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "en")

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, stubVoiceStore{profile: nil}, nil, testPipelineConfig(), testAudioConfig())
	p.processBlock(context.Background(), make([]byte, 6400))

	select {
	case raw := <-listener.Outbound():
		var msg TranslationMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.True(t, msg.VoiceFallback)
	default:
		t.Fatal("expected a message")
	}
}

func TestVoiceProfilePreferredOverFallback(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "en")

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	voices := stubVoiceStore{profile: &ports.VoiceProfile{UserID: "speaker", ReferenceAudioPath: "/tmp/ref.wav", Language: "pt"}}
	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, voices, nil, testPipelineConfig(), testAudioConfig())
	p.processBlock(context.Background(), make([]byte, 6400))

	select {
	case raw := <-listener.Outbound():
		var msg TranslationMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.False(t, msg.VoiceFallback)
	default:
		t.Fatal("expected a message")
	}
}

func TestMutedSpeakerIsSkippedByRunLoop(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	speaker.SetMuted(true)

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	cfg := testPipelineConfig()
	cfg.CycleIntervalMS = 10
	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, cfg, testAudioConfig())

	speaker.ChunkBuffer.Push(make([]byte, 6400))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	assert.Equal(t, int32(0), asr.calls.Load(), "muted speaker's buffered audio must never reach ASR")
}

// blockLenASR records the byte length of every block handed to Transcribe,
// so tests can assert on how the aggregation cycle sliced pending audio.
type blockLenASR struct {
	mu   sync.Mutex
	lens []int
}

func (s *blockLenASR) Transcribe(ctx context.Context, pcm16 []byte, sampleRate int, hint string) (ports.TranscriptionResult, error) {
	s.mu.Lock()
	s.lens = append(s.lens, len(pcm16))
	s.mu.Unlock()
	return ports.TranscriptionResult{Text: "", DetectedLanguage: "pt", Confidence: 1}, nil
}

func (s *blockLenASR) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.lens...)
}

func TestAggregationCutsAtMaxBlockBoundaryAndRetainsRemainder(t *testing.T) {
	m := newTestManager(t)
	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")

	asr := &blockLenASR{}
	cache := testCache(t)

	cfg := testPipelineConfig()
	cfg.CycleIntervalMS = 10
	cfg.MinBlockDurationMS = 50
	cfg.MaxBlockDurationMS = 100
	cfg.CycleDeadlineMS = 5000
	audioCfg := config.AudioConfig{InputSampleRate: 16000, OutputSampleRate: 22050}
	maxBlockBytes := bytesForDuration(time.Duration(cfg.MaxBlockDurationMS)*time.Millisecond, audioCfg.InputSampleRate)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, &stubMT{}, &stubTTS{}), cache, nil, nil, cfg, audioCfg)

	// 400ms of audio (12800 bytes) at once: four times maxBlock (100ms).
	speaker.ChunkBuffer.Push(make([]byte, 12800))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	for _, l := range asr.snapshot() {
		assert.LessOrEqual(t, l, maxBlockBytes, "no ASR call may exceed max_block_duration worth of bytes")
	}
	assert.GreaterOrEqual(t, len(asr.snapshot()), 4, "400ms of audio at a 100ms max block must be sliced into at least 4 ASR calls")
}

func TestStartIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	asr := &stubASR{text: "", detected: "pt"}
	cache := testCache(t)
	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, &stubMT{}, &stubTTS{}), cache, nil, nil, testPipelineConfig(), testAudioConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Start(ctx) // must be a no-op: State machine rejects the second "start" event.
	assert.Equal(t, StateRunning, p.State())
	p.Stop()
	assert.Equal(t, StateStopped, p.State())
}

func TestASRFailureDropsCycleAndKeepsProcessorAlive(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "en")

	asr := &stubASR{err: assertErr("asr down")}
	mt := &stubMT{}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())
	p.processBlock(context.Background(), make([]byte, 6400))

	// The speaker gets an error frame; listeners get nothing for this cycle.
	select {
	case raw := <-speaker.Outbound():
		assert.Contains(t, string(raw), `"type":"error"`)
	default:
		t.Fatal("expected speaker to receive an error frame")
	}
	select {
	case <-listener.Outbound():
		t.Fatal("listener must not receive anything when ASR fails")
	default:
	}
	assert.Equal(t, StateIdle, p.State(), "a failed cycle must not crash or change lifecycle state")
}

func TestMTFailureSkipsOnlyThatListener(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	l1 := connectUser(t, m, "l1", "r1", "en", "en")
	l2 := connectUser(t, m, "l2", "r1", "es", "es")
	l3 := connectUser(t, m, "l3", "r1", "pt", "pt") // same language: needs no MT

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{err: assertErr("mt down")}
	tts := &stubTTS{}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())
	p.processBlock(context.Background(), make([]byte, 6400))

	for _, l := range []*connection.Connection{l1, l2} {
		select {
		case <-l.Outbound():
			t.Fatalf("listener %s should have been skipped when MT fails", l.UserID)
		default:
		}
	}
	select {
	case <-l3.Outbound():
	default:
		t.Fatal("listener l3 needs no MT and must still receive its message")
	}
}

func TestTTSFailureFallsBackToTextOnlyDelivery(t *testing.T) {
	m := newTestManager(t)

	speaker := connectUser(t, m, "speaker", "r1", "pt", "pt")
	listener := connectUser(t, m, "listener", "r1", "en", "en")

	asr := &stubASR{text: "Bom dia", detected: "pt"}
	mt := &stubMT{}
	tts := &stubTTS{err: assertErr("tts down")}
	cache := testCache(t)

	p := New(commons.NewTestLogger(), m, speaker, testLoader(asr, mt, tts), cache, nil, nil, testPipelineConfig(), testAudioConfig())
	p.processBlock(context.Background(), make([]byte, 6400))

	select {
	case raw := <-listener.Outbound():
		var msg TranslationMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Nil(t, msg.Audio)
		assert.True(t, msg.VoiceFallback)
		assert.NotEmpty(t, msg.Text)
	default:
		t.Fatal("expected a text-only delivery when TTS fails")
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
