// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package voiceprofile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/rapidaai/translate/internal/commons"
	"github.com/rapidaai/translate/internal/ports"
)

// Store resolves voice profiles, following the same interface-first shape
// as internal/callcontext.Store.
type Store interface {
	// Get returns nil, nil when no usable profile exists for userID -
	// either the metadata record is absent or the referenced file is
	// missing from disk. Both must be present to return a profile.
	Get(ctx context.Context, userID string) (*ports.VoiceProfile, error)

	// Upsert creates or updates a user's voice profile metadata record.
	// Called by the (external) voice upload collaborator, not the core
	// pipeline, but kept here because it owns the same table.
	Upsert(ctx context.Context, userID, referenceAudioPath, language string) error
}

type gormStore struct {
	db     *gorm.DB
	logger commons.Logger
}

// NewStore constructs a Postgres-backed Store.
func NewStore(db *gorm.DB, logger commons.Logger) Store {
	return &gormStore{db: db, logger: logger}
}

func (s *gormStore) Get(ctx context.Context, userID string) (*ports.VoiceProfile, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("voiceprofile: lookup failed for %s: %w", userID, err)
	}

	if _, statErr := os.Stat(rec.ReferenceAudioPath); statErr != nil {
		s.logger.Warnf("voiceprofile: metadata exists for %s but reference audio is missing at %s: %v",
			userID, rec.ReferenceAudioPath, statErr)
		return nil, nil
	}

	return &ports.VoiceProfile{
		UserID:             rec.UserID,
		ReferenceAudioPath: rec.ReferenceAudioPath,
		Language:           rec.Language,
	}, nil
}

func (s *gormStore) Upsert(ctx context.Context, userID, referenceAudioPath, language string) error {
	rec := Record{UserID: userID, ReferenceAudioPath: referenceAudioPath, Language: language}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Assign(Record{ReferenceAudioPath: referenceAudioPath, Language: language}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("voiceprofile: upsert failed for %s: %w", userID, err)
	}
	s.logger.Infof("voiceprofile: stored reference audio for %s at %s", userID, referenceAudioPath)
	return nil
}
