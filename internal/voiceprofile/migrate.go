// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package voiceprofile

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate runs the voice_profiles table migration against the given
// Postgres DSN, using the migration files under internal/voiceprofile/migrations
// relative to the process working directory.
func Migrate(postgresDSN string) error {
	m, err := migrate.New("file://internal/voiceprofile/migrations", "postgres://"+postgresDSN)
	if err != nil {
		return fmt.Errorf("voiceprofile: failed to init migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("voiceprofile: migration failed: %w", err)
	}
	return nil
}
