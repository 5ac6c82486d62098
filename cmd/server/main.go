// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command server is the process entrypoint: it loads configuration, wires
// every collaborator the WebSocket Hub depends on, and serves the
// conferencing core's audio/signaling endpoint behind gin with a
// graceful-shutdown loop, the same ListenAndServe/signal.Notify shape the
// retrieval pack's cmd/api entrypoints use.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/translate/internal/auth"
	"github.com/rapidaai/translate/internal/commons"
	"github.com/rapidaai/translate/internal/config"
	"github.com/rapidaai/translate/internal/directory"
	"github.com/rapidaai/translate/internal/modelloader"
	"github.com/rapidaai/translate/internal/ports"
	"github.com/rapidaai/translate/internal/providers/normalizers"
	"github.com/rapidaai/translate/internal/providers/resampler"
	"github.com/rapidaai/translate/internal/providers/vad"
	"github.com/rapidaai/translate/internal/translationcache"
	"github.com/rapidaai/translate/internal/voiceprofile"
	"github.com/rapidaai/translate/internal/ws"

	asrazure "github.com/rapidaai/translate/internal/providers/asr/azure"
	asrawstranscribe "github.com/rapidaai/translate/internal/providers/asr/awstranscribe"
	asrdeepgram "github.com/rapidaai/translate/internal/providers/asr/deepgram"
	asrgoogle "github.com/rapidaai/translate/internal/providers/asr/google"

	mtanthropic "github.com/rapidaai/translate/internal/providers/mt/anthropic"
	mtawstranslate "github.com/rapidaai/translate/internal/providers/mt/awstranslate"
	mtcohere "github.com/rapidaai/translate/internal/providers/mt/cohere"
	mtgenai "github.com/rapidaai/translate/internal/providers/mt/genai"
	mtopenai "github.com/rapidaai/translate/internal/providers/mt/openai"

	ttsawspolly "github.com/rapidaai/translate/internal/providers/tts/awspolly"
	ttsazure "github.com/rapidaai/translate/internal/providers/tts/azure"
	ttselevenlabs "github.com/rapidaai/translate/internal/providers/tts/elevenlabs"
	ttsgoogle "github.com/rapidaai/translate/internal/providers/tts/google"
	ttsreplicate "github.com/rapidaai/translate/internal/providers/tts/replicate"
)

func main() {
	v, err := config.InitConfig()
	if err != nil {
		fmt.Printf("failed to init config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := commons.New(commons.Options{
		Level:    cfg.LogLevel,
		Filename: cfg.LogFile,
		Console:  true,
	})
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := voiceprofile.Migrate(postgresDSN(cfg.Postgres)); err != nil {
		logger.Warnf("main: voice profile migration failed, continuing: %v", err)
	}

	db, err := voiceprofile.Open(cfg.Postgres)
	if err != nil {
		logger.Errorf("main: failed to open postgres: %v", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	cache, err := translationcache.New(
		logger.With("component", "translationcache"),
		cfg.Cache.TranslationCacheSize,
		time.Duration(cfg.Cache.TranslationCacheTTLS)*time.Second,
		redisClient,
	)
	if err != nil {
		logger.Errorf("main: failed to init translation cache: %v", err)
		os.Exit(1)
	}

	authn, err := auth.New(cfg.Secret)
	if err != nil {
		logger.Errorf("main: failed to init auth: %v", err)
		os.Exit(1)
	}

	users := directory.NewUserDirectory(db)
	rooms := directory.NewRoomRegistry(db)
	voices := voiceprofile.NewStore(db, logger.With("component", "voiceprofile"))

	normalizerPipeline := normalizers.BuildPipeline(logger.With("component", "normalizers"), cfg.Providers.NormalizerPipeline)
	resamp := resampler.New()

	var vadFunc func(pcm16 []byte, sampleRate int) bool
	if cfg.Providers.VAD.Enabled {
		detector, err := vad.New(logger.With("component", "vad"), vad.Config{
			ModelPath:            cfg.Providers.VAD.ModelPath,
			SampleRate:           cfg.Providers.VAD.SampleRate,
			Threshold:            cfg.Providers.VAD.Threshold,
			MinSilenceDurationMS: cfg.Providers.VAD.MinSilenceDurationMS,
			SpeechPadMS:          cfg.Providers.VAD.SpeechPadMS,
		})
		if err != nil {
			logger.Warnf("main: vad disabled, failed to load model: %v", err)
		} else {
			defer detector.Close()
			vadFunc = detector.Func()
		}
	}

	loader := modelloader.New(
		logger.With("component", "modelloader"),
		buildLoadFunc(logger, cfg, normalizerPipeline, resamp),
		time.Duration(cfg.ModelLoad.IdleUnloadSeconds)*time.Second,
	)
	defer loader.Close()

	if cfg.ModelLoad.PreloadOnStartup {
		preloadCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		loader.Preload(preloadCtx)
		cancel()
	}

	hub := ws.NewHub(logger.With("component", "ws"), cfg, authn, users, rooms, loader, cache, voices, vadFunc)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.Name, "version": cfg.Version})
	})
	ws.Route(cfg, engine, hub)

	runServer(cfg, engine, logger)
}

// runServer serves engine behind http.Server and blocks until a shutdown
// signal arrives, then drains in-flight requests for 10s before forcing
// close.
func runServer(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		logger.Infof("main: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("main: server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("main: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("main: forced shutdown: %v", err)
	}
}

// postgresDSN formats the URI voiceprofile.Migrate expects, which prefixes
// this with "postgres://" itself.
func postgresDSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf(
		"%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)
}

// buildLoadFunc returns the modelloader.LoadFunc that dispatches each
// model kind to whichever vendor cfg.Providers selects:
// exactly one provider is constructed per kind, lazily, on first use.
func buildLoadFunc(
	logger commons.Logger,
	cfg *config.AppConfig,
	normalizerPipeline []normalizers.Normalizer,
	resamp resampler.Resampler,
) modelloader.LoadFunc {
	return func(ctx context.Context, kind modelloader.Kind) (interface{}, func(), error) {
		switch kind {
		case modelloader.KindASR:
			return loadASR(ctx, logger, cfg)
		case modelloader.KindMT:
			return loadMT(ctx, logger, cfg)
		case modelloader.KindTTS:
			return loadTTS(ctx, logger, cfg, normalizerPipeline, resamp)
		default:
			return nil, nil, fmt.Errorf("main: unknown model kind %q", kind)
		}
	}
}

func loadASR(ctx context.Context, logger commons.Logger, cfg *config.AppConfig) (interface{}, func(), error) {
	p := cfg.Providers
	switch p.ASRVendor {
	case "google":
		provider, err := asrgoogle.New(ctx, asrgoogle.Config{
			APIKey:          p.GoogleASR.APIKey,
			CredentialsJSON: []byte(p.GoogleASR.CredentialsJSON),
			Model:           p.GoogleASR.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.ASR(provider), func() { _ = provider.Close() }, nil

	case "deepgram":
		provider, err := asrdeepgram.New(asrdeepgram.Config{
			APIKey:      p.DeepgramASR.APIKey,
			Model:       p.DeepgramASR.Model,
			SmartFormat: p.DeepgramASR.SmartFormat,
			Punctuate:   p.DeepgramASR.Punctuate,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.ASR(provider), nil, nil

	case "azure":
		provider, err := asrazure.New(asrazure.Config{
			SubscriptionKey: p.AzureASR.SubscriptionKey,
			Endpoint:        p.AzureASR.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.ASR(provider), nil, nil

	case "aws", "aws_transcribe":
		provider, err := asrawstranscribe.New(asrawstranscribe.Config{
			Region:          p.AWSTranscribeASR.Region,
			AccessKeyID:     p.AWSTranscribeASR.AccessKeyID,
			SecretAccessKey: p.AWSTranscribeASR.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.ASR(provider), nil, nil

	default:
		return nil, nil, fmt.Errorf("main: unknown asr vendor %q", p.ASRVendor)
	}
}

func loadMT(ctx context.Context, logger commons.Logger, cfg *config.AppConfig) (interface{}, func(), error) {
	p := cfg.Providers
	switch p.MTVendor {
	case "genai", "gemini":
		provider, err := mtgenai.New(ctx, logger.With("component", "mt", "vendor", "genai"), mtgenai.Config{
			APIKey: p.GenAIMT.APIKey,
			Model:  p.GenAIMT.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.MT(provider), nil, nil

	case "openai":
		provider, err := mtopenai.New(mtopenai.Config{
			APIKey: p.OpenAIMT.APIKey,
			Model:  p.OpenAIMT.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.MT(provider), nil, nil

	case "anthropic":
		provider, err := mtanthropic.New(mtanthropic.Config{
			APIKey: p.AnthropicMT.APIKey,
			Model:  p.AnthropicMT.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.MT(provider), nil, nil

	case "cohere":
		provider, err := mtcohere.New(mtcohere.Config{
			APIKey: p.CohereMT.APIKey,
			Model:  p.CohereMT.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.MT(provider), nil, nil

	case "aws", "aws_translate":
		provider, err := mtawstranslate.New(mtawstranslate.Config{
			Region:          p.AWSTranslate.Region,
			AccessKeyID:     p.AWSTranslate.AccessKeyID,
			SecretAccessKey: p.AWSTranslate.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return ports.MT(provider), nil, nil

	default:
		return nil, nil, fmt.Errorf("main: unknown mt vendor %q", p.MTVendor)
	}
}

func loadTTS(ctx context.Context, logger commons.Logger, cfg *config.AppConfig, normalizerPipeline []normalizers.Normalizer, resamp resampler.Resampler) (interface{}, func(), error) {
	p := cfg.Providers
	switch p.TTSVendor {
	case "google":
		provider, err := ttsgoogle.New(ctx, ttsgoogle.Config{
			APIKey:          p.GoogleTTS.APIKey,
			CredentialsJSON: []byte(p.GoogleTTS.CredentialsJSON),
			Voice:           p.GoogleTTS.Voice,
		})
		if err != nil {
			return nil, nil, err
		}
		return wrapTTS(provider, cfg, normalizerPipeline, resamp), func() { _ = provider.Close() }, nil

	case "azure":
		provider, err := ttsazure.New(ttsazure.Config{
			SubscriptionKey: p.AzureTTS.SubscriptionKey,
			Endpoint:        p.AzureTTS.Endpoint,
			Voice:           p.AzureTTS.Voice,
		})
		if err != nil {
			return nil, nil, err
		}
		return wrapTTS(provider, cfg, normalizerPipeline, resamp), nil, nil

	case "elevenlabs":
		provider, err := ttselevenlabs.New(ttselevenlabs.Config{
			APIKey:  p.ElevenLabsTTS.APIKey,
			VoiceID: p.ElevenLabsTTS.VoiceID,
			ModelID: p.ElevenLabsTTS.ModelID,
		})
		if err != nil {
			return nil, nil, err
		}
		return wrapTTS(provider, cfg, normalizerPipeline, resamp), nil, nil

	case "replicate":
		provider, err := ttsreplicate.New(ttsreplicate.Config{
			APIToken: p.ReplicateTTS.APIToken,
			Model:    p.ReplicateTTS.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return wrapTTS(provider, cfg, normalizerPipeline, resamp), nil, nil

	case "aws", "aws_polly":
		provider, err := ttsawspolly.New(ttsawspolly.Config{
			Region:          p.AWSPollyTTS.Region,
			AccessKeyID:     p.AWSPollyTTS.AccessKeyID,
			SecretAccessKey: p.AWSPollyTTS.SecretAccessKey,
			VoiceID:         p.AWSPollyTTS.VoiceID,
		})
		if err != nil {
			return nil, nil, err
		}
		return wrapTTS(provider, cfg, normalizerPipeline, resamp), nil, nil

	default:
		return nil, nil, fmt.Errorf("main: unknown tts vendor %q", p.TTSVendor)
	}
}
