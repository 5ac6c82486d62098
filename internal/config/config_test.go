package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsProduceValidConfig(t *testing.T) {
	v, err := InitConfig()
	require.NoError(t, err)
	// SECRET has no usable default; the operator must always supply it.
	v.Set("SECRET", "test-secret")

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 16000, cfg.Audio.InputSampleRate)
	assert.Equal(t, 22050, cfg.Audio.OutputSampleRate)
	assert.Equal(t, 500, cfg.Pipeline.CycleIntervalMS)
	assert.Equal(t, 200, cfg.Pipeline.MinBlockDurationMS)
	assert.Equal(t, 3000, cfg.Pipeline.MaxBlockDurationMS)
	assert.Equal(t, 1<<20, cfg.Pipeline.ChunkBufferMaxBytes)
	assert.Equal(t, 32, cfg.Room.OutboundChannelDepth)
	assert.Equal(t, 50, cfg.Room.MaxParticipants)
	assert.Equal(t, 10000, cfg.Cache.TranslationCacheSize)
	assert.Equal(t, 3600, cfg.ModelLoad.IdleUnloadSeconds)
	assert.Equal(t, 60, cfg.RateLimit.ChunksPerSecond)
}

func TestMissingRequiredFieldFailsValidation(t *testing.T) {
	v, err := InitConfig()
	require.NoError(t, err)
	v.Set("SERVICE_NAME", "")

	_, err = GetApplicationConfig(v)
	assert.Error(t, err)
}
