// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package translationcache implements the MT short-circuit cache: a bounded
// LRU keyed on normalized (text, src, tgt), with an optional Redis overflow
// tier for multi-instance deployments. Process-local by default; not
// required for correctness.
package translationcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/translate/internal/commons"
)

type entry struct {
	text      string
	expiresAt time.Time
}

// Cache is the bounded, process-local translation cache. A nil RedisClient
// disables the overflow tier entirely.
type Cache struct {
	logger commons.Logger
	lru    *lru.Cache[string, entry]
	ttl    time.Duration
	redis  *redis.Client
}

// New builds a Cache bounded at size entries with the given TTL. redisClient
// may be nil to disable the overflow tier (the default).
func New(logger commons.Logger, size int, ttl time.Duration, redisClient *redis.Client) (*Cache, error) {
	if size <= 0 {
		size = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{logger: logger, lru: c, ttl: ttl, redis: redisClient}, nil
}

// Normalize lowercases and collapses whitespace.
func Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	return strings.Join(fields, " ")
}

func key(text, src, tgt string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(text)))
	h.Write([]byte{0})
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(tgt))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached translation, if present and unexpired.
func (c *Cache) Get(ctx context.Context, text, src, tgt string) (string, bool) {
	k := key(text, src, tgt)
	if e, ok := c.lru.Get(k); ok {
		if time.Now().Before(e.expiresAt) {
			return e.text, true
		}
		c.lru.Remove(k)
	}

	if c.redis == nil {
		return "", false
	}
	val, err := c.redis.Get(ctx, redisKey(k)).Result()
	if err != nil {
		return "", false
	}
	// Repopulate the local tier so the next hit is in-process.
	c.lru.Add(k, entry{text: val, expiresAt: time.Now().Add(c.ttl)})
	return val, true
}

// Put inserts a translation, overwriting any existing entry for the key.
func (c *Cache) Put(ctx context.Context, text, src, tgt, translated string) {
	k := key(text, src, tgt)
	c.lru.Add(k, entry{text: translated, expiresAt: time.Now().Add(c.ttl)})

	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, redisKey(k), translated, c.ttl).Err(); err != nil {
		c.logger.Warnf("translationcache: redis overflow write failed: %v", err)
	}
}

// Len reports the number of entries currently in the in-process LRU.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func redisKey(k string) string {
	return "tcache:" + k
}
