package translationcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/translate/internal/commons"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(commons.NewTestLogger(), 100, ttl, nil)
	require.NoError(t, err)
	return c
}

func TestPutThenGetHits(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "Bom dia", "pt", "en", "Good morning")

	got, ok := c.Get(ctx, "Bom dia", "pt", "en")
	assert.True(t, ok)
	assert.Equal(t, "Good morning", got)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := newTestCache(t, time.Minute)
	_, ok := c.Get(context.Background(), "nothing cached", "pt", "en")
	assert.False(t, ok)
}

func TestNormalizationCollapsesCaseAndWhitespace(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "  Bom   Dia  ", "pt", "en", "Good morning")

	got, ok := c.Get(ctx, "bom dia", "pt", "en")
	assert.True(t, ok)
	assert.Equal(t, "Good morning", got)
}

func TestDifferentLanguagePairsAreDistinctKeys(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "Bom dia", "pt", "en", "Good morning")
	c.Put(ctx, "Bom dia", "pt", "es", "Buenos días")

	enHit, _ := c.Get(ctx, "Bom dia", "pt", "en")
	esHit, _ := c.Get(ctx, "Bom dia", "pt", "es")
	assert.Equal(t, "Good morning", enHit)
	assert.Equal(t, "Buenos días", esHit)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := newTestCache(t, time.Millisecond)
	ctx := context.Background()

	c.Put(ctx, "Bom dia", "pt", "en", "Good morning")
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "Bom dia", "pt", "en")
	assert.False(t, ok)
}
