// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package translationcache

import (
	"context"
	"testing"
	"time"

	redismock "github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/translate/internal/commons"
)

func newMockedCache(t *testing.T) (*Cache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	c, err := New(commons.NewTestLogger(), 100, time.Minute, db)
	require.NoError(t, err)
	return c, mock
}

func TestGetFallsThroughToRedisOnLocalMiss(t *testing.T) {
	c, mock := newMockedCache(t)
	k := key("Bom dia", "pt", "en")
	mock.ExpectGet("tcache:" + k).SetVal("Good morning")

	got, ok := c.Get(context.Background(), "Bom dia", "pt", "en")
	assert.True(t, ok)
	assert.Equal(t, "Good morning", got)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The redis hit must repopulate the in-process tier.
	assert.Equal(t, 1, c.Len())
}

func TestGetMissesBothTiers(t *testing.T) {
	c, mock := newMockedCache(t)
	k := key("nothing cached", "pt", "en")
	mock.ExpectGet("tcache:" + k).RedisNil()

	_, ok := c.Get(context.Background(), "nothing cached", "pt", "en")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutWritesThroughToRedis(t *testing.T) {
	c, mock := newMockedCache(t)
	k := key("Bom dia", "pt", "en")
	mock.ExpectSet("tcache:"+k, "Good morning", time.Minute).SetVal("OK")

	c.Put(context.Background(), "Bom dia", "pt", "en", "Good morning")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutToleratesRedisWriteFailure(t *testing.T) {
	c, mock := newMockedCache(t)
	k := key("Bom dia", "pt", "en")
	mock.ExpectSet("tcache:"+k, "Good morning", time.Minute).SetErr(assertErr("redis down"))

	// Put must still populate the local tier even when the overflow write fails.
	c.Put(context.Background(), "Bom dia", "pt", "en", "Good morning")
	got, ok := c.Get(context.Background(), "Bom dia", "pt", "en")
	assert.True(t, ok)
	assert.Equal(t, "Good morning", got)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
