// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package voiceprofile

import (
	"fmt"

	"github.com/go-gorm/caches/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rapidaai/translate/internal/config"
)

// Open dials Postgres via GORM and installs a go-gorm/caches/v4
// read-through query cache in front of it.
func Open(cfg config.PostgresConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.DBName, cfg.User, cfg.Password, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("voiceprofile: failed to open postgres: %w", err)
	}

	cachesPlugin := &caches.Caches{Conf: &caches.Config{Cacher: &caches.MemoryCacher{}}}
	if err := db.Use(cachesPlugin); err != nil {
		return nil, fmt.Errorf("voiceprofile: failed to install query cache: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("voiceprofile: failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)

	return db, nil
}
