// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package config loads and validates the service's environment-driven
// configuration, following the same viper + validator pattern the
// integration-api service uses.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the full recognized configuration surface for the
// service, plus the ambient settings (host/port/log level/secret).
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Secret   string `mapstructure:"secret" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogFile  string `mapstructure:"log_file"`

	WSPathPrefix string `mapstructure:"ws_path_prefix" validate:"required"`

	Postgres PostgresConfig `mapstructure:"postgres" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`

	Audio      AudioConfig      `mapstructure:"audio" validate:"required"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" validate:"required"`
	Room       RoomConfig       `mapstructure:"room" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache" validate:"required"`
	ModelLoad  ModelLoadConfig  `mapstructure:"model_load" validate:"required"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" validate:"required"`
	VoiceStore VoiceStoreConfig `mapstructure:"voice_store" validate:"required"`
	Providers  ProvidersConfig  `mapstructure:"providers" validate:"required"`
}

// ProvidersConfig selects and configures the vendor adapters the Lazy
// Model Loader instantiates for each of the three model kinds. Only the
// section matching the selected vendor needs real credentials; the
// others may stay at their zero value.
type ProvidersConfig struct {
	ASRVendor string `mapstructure:"asr_vendor" validate:"required"`
	MTVendor  string `mapstructure:"mt_vendor" validate:"required"`
	TTSVendor string `mapstructure:"tts_vendor" validate:"required"`

	NormalizerPipeline []string `mapstructure:"normalizer_pipeline"`

	VAD VADConfig `mapstructure:"vad"`

	GoogleASR        GoogleASRConfig        `mapstructure:"google_asr"`
	DeepgramASR      DeepgramASRConfig      `mapstructure:"deepgram_asr"`
	AzureASR         AzureASRConfig         `mapstructure:"azure_asr"`
	AWSTranscribeASR AWSTranscribeConfig    `mapstructure:"aws_transcribe_asr"`

	GenAIMT      GenAIMTConfig      `mapstructure:"genai_mt"`
	OpenAIMT     OpenAIMTConfig     `mapstructure:"openai_mt"`
	AnthropicMT  AnthropicMTConfig  `mapstructure:"anthropic_mt"`
	CohereMT     CohereMTConfig     `mapstructure:"cohere_mt"`
	AWSTranslate AWSTranslateConfig `mapstructure:"aws_translate_mt"`

	GoogleTTS     GoogleTTSConfig     `mapstructure:"google_tts"`
	AzureTTS      AzureTTSConfig      `mapstructure:"azure_tts"`
	ElevenLabsTTS ElevenLabsTTSConfig `mapstructure:"elevenlabs_tts"`
	ReplicateTTS  ReplicateTTSConfig  `mapstructure:"replicate_tts"`
	AWSPollyTTS   AWSPollyConfig      `mapstructure:"aws_polly_tts"`
}

// VADConfig locates the optional Silero voice-activity model.
type VADConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	ModelPath            string  `mapstructure:"model_path"`
	SampleRate           int     `mapstructure:"sample_rate"`
	Threshold            float32 `mapstructure:"threshold"`
	MinSilenceDurationMS int     `mapstructure:"min_silence_duration_ms"`
	SpeechPadMS          int     `mapstructure:"speech_pad_ms"`
}

type GoogleASRConfig struct {
	APIKey          string `mapstructure:"api_key"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	Model           string `mapstructure:"model"`
}

type DeepgramASRConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	SmartFormat bool   `mapstructure:"smart_format"`
	Punctuate   bool   `mapstructure:"punctuate"`
}

type AzureASRConfig struct {
	SubscriptionKey string `mapstructure:"subscription_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

type AWSTranscribeConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type GenAIMTConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIMTConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AnthropicMTConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type CohereMTConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AWSTranslateConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type GoogleTTSConfig struct {
	APIKey          string `mapstructure:"api_key"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	Voice           string `mapstructure:"voice"`
}

type AzureTTSConfig struct {
	SubscriptionKey string `mapstructure:"subscription_key"`
	Endpoint        string `mapstructure:"endpoint"`
	Voice           string `mapstructure:"voice"`
}

type ElevenLabsTTSConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	ModelID string `mapstructure:"model_id"`
}

type ReplicateTTSConfig struct {
	APIToken string `mapstructure:"api_token"`
	Model    string `mapstructure:"model"`
}

type AWSPollyConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	VoiceID         string `mapstructure:"voice_id"`
}

// PostgresConfig backs the Voice Profile Store.
type PostgresConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required"`
	DBName             string `mapstructure:"db_name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
}

// RedisConfig backs the optional Translation Cache overflow tier.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AudioConfig fixes the wire sample rates.
type AudioConfig struct {
	InputSampleRate  int `mapstructure:"input_sample_rate" validate:"required"`
	OutputSampleRate int `mapstructure:"output_sample_rate" validate:"required"`
}

// PipelineConfig is the Stream Processor's aggregation policy.
type PipelineConfig struct {
	CycleIntervalMS     int `mapstructure:"cycle_interval_ms" validate:"required"`
	MinBlockDurationMS  int `mapstructure:"min_block_duration_ms" validate:"required"`
	MaxBlockDurationMS  int `mapstructure:"max_block_duration_ms" validate:"required"`
	CycleDeadlineMS     int `mapstructure:"cycle_deadline_ms" validate:"required"`
	ChunkBufferMaxBytes int `mapstructure:"chunk_buffer_max_bytes" validate:"required"`
}

// RoomConfig bounds room membership and outbound queueing.
type RoomConfig struct {
	OutboundChannelDepth int `mapstructure:"outbound_channel_depth" validate:"required"`
	MaxParticipants      int `mapstructure:"max_participants" validate:"required"`
}

// CacheConfig sizes the Translation Cache.
type CacheConfig struct {
	TranslationCacheSize int `mapstructure:"translation_cache_size" validate:"required"`
	TranslationCacheTTLS int `mapstructure:"translation_cache_ttl_seconds" validate:"required"`
}

// ModelLoadConfig governs the Lazy Model Loader.
type ModelLoadConfig struct {
	IdleUnloadSeconds int  `mapstructure:"idle_unload_seconds" validate:"required"`
	PreloadOnStartup  bool `mapstructure:"preload_on_startup"`
}

// RateLimitConfig is the optional per-connection rate cap.
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	ChunksPerSecond int  `mapstructure:"chunks_per_second"`
	BytesPerMinute  int  `mapstructure:"bytes_per_minute"`
}

// VoiceStoreConfig locates reference-audio files on disk.
type VoiceStoreConfig struct {
	ReferenceAudioDir string `mapstructure:"reference_audio_dir" validate:"required"`
}

// InitConfig wires a viper instance reading from ENV_PATH (or `.env`) plus
// process environment variables, mirroring integration-api's InitConfig.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	if err := vConfig.ReadInConfig(); err != nil {
		log.Printf("no env file read: %v", err)
	}

	setDefault(vConfig)

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "speech-translate-core")
	v.SetDefault("VERSION", "0.1.0")
	v.SetDefault("SECRET", "")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("WS_PATH_PREFIX", "/v1")

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "speech_translate")
	v.SetDefault("POSTGRES__USER", "postgres")
	v.SetDefault("POSTGRES__PASSWORD", "")
	v.SetDefault("POSTGRES__SSL_MODE", "disable")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTIONS", 10)
	v.SetDefault("POSTGRES__MAX_IDLE_CONNECTIONS", 10)

	v.SetDefault("REDIS__ENABLED", false)
	v.SetDefault("REDIS__ADDR", "localhost:6379")
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DB", 0)

	v.SetDefault("AUDIO__INPUT_SAMPLE_RATE", 16000)
	v.SetDefault("AUDIO__OUTPUT_SAMPLE_RATE", 22050)

	v.SetDefault("PIPELINE__CYCLE_INTERVAL_MS", 500)
	v.SetDefault("PIPELINE__MIN_BLOCK_DURATION_MS", 200)
	v.SetDefault("PIPELINE__MAX_BLOCK_DURATION_MS", 3000)
	v.SetDefault("PIPELINE__CYCLE_DEADLINE_MS", 3000)
	v.SetDefault("PIPELINE__CHUNK_BUFFER_MAX_BYTES", 1<<20)

	v.SetDefault("ROOM__OUTBOUND_CHANNEL_DEPTH", 32)
	v.SetDefault("ROOM__MAX_PARTICIPANTS", 50)

	v.SetDefault("CACHE__TRANSLATION_CACHE_SIZE", 10000)
	v.SetDefault("CACHE__TRANSLATION_CACHE_TTL_SECONDS", 600)

	v.SetDefault("MODEL_LOAD__IDLE_UNLOAD_SECONDS", 3600)
	v.SetDefault("MODEL_LOAD__PRELOAD_ON_STARTUP", false)

	v.SetDefault("RATE_LIMIT__ENABLED", true)
	v.SetDefault("RATE_LIMIT__CHUNKS_PER_SECOND", 60)
	v.SetDefault("RATE_LIMIT__BYTES_PER_MINUTE", 0)

	v.SetDefault("VOICE_STORE__REFERENCE_AUDIO_DIR", "./data/voice-profiles")

	v.SetDefault("PROVIDERS__ASR_VENDOR", "google")
	v.SetDefault("PROVIDERS__MT_VENDOR", "openai")
	v.SetDefault("PROVIDERS__TTS_VENDOR", "google")
	v.SetDefault("PROVIDERS__NORMALIZER_PIPELINE", []string{"currency", "date", "time", "number", "symbol", "address", "url", "abbreviation"})

	v.SetDefault("PROVIDERS__VAD__ENABLED", false)
	v.SetDefault("PROVIDERS__VAD__MODEL_PATH", "./data/silero_vad.onnx")
	v.SetDefault("PROVIDERS__VAD__SAMPLE_RATE", 16000)
	v.SetDefault("PROVIDERS__VAD__THRESHOLD", 0.5)
	v.SetDefault("PROVIDERS__VAD__MIN_SILENCE_DURATION_MS", 100)
	v.SetDefault("PROVIDERS__VAD__SPEECH_PAD_MS", 30)

	v.SetDefault("PROVIDERS__GOOGLE_ASR__MODEL", "latest_long")
	v.SetDefault("PROVIDERS__DEEPGRAM_ASR__MODEL", "nova-2")
	v.SetDefault("PROVIDERS__DEEPGRAM_ASR__SMART_FORMAT", true)
	v.SetDefault("PROVIDERS__DEEPGRAM_ASR__PUNCTUATE", true)
	v.SetDefault("PROVIDERS__AWS_TRANSCRIBE_ASR__REGION", "us-east-1")

	v.SetDefault("PROVIDERS__GENAI_MT__MODEL", "gemini-1.5-flash")
	v.SetDefault("PROVIDERS__OPENAI_MT__MODEL", "gpt-4o-mini")
	v.SetDefault("PROVIDERS__ANTHROPIC_MT__MODEL", "claude-3-5-haiku-latest")
	v.SetDefault("PROVIDERS__COHERE_MT__MODEL", "command-r")
	v.SetDefault("PROVIDERS__AWS_TRANSLATE_MT__REGION", "us-east-1")

	v.SetDefault("PROVIDERS__GOOGLE_TTS__VOICE", "en-US-Neural2-C")
	v.SetDefault("PROVIDERS__AZURE_TTS__VOICE", "en-US-JennyNeural")
	v.SetDefault("PROVIDERS__ELEVENLABS_TTS__VOICE_ID", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("PROVIDERS__ELEVENLABS_TTS__MODEL_ID", "eleven_multilingual_v2")
	v.SetDefault("PROVIDERS__REPLICATE_TTS__MODEL", "lucataco/xtts-v2:684bc3855b37866c0c65add2ff39c78f3dea3f4ff103a436465326e0f438d55")
	v.SetDefault("PROVIDERS__AWS_POLLY_TTS__REGION", "us-east-1")
	v.SetDefault("PROVIDERS__AWS_POLLY_TTS__VOICE_ID", "Joanna")
}

// GetApplicationConfig unmarshals and validates the AppConfig from viper,
// mirroring integration-api's GetApplicationConfig.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &cfg, nil
}
