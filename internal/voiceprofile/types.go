// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package voiceprofile is the Voice Profile Store: it maps a
// user id to a reference audio sample used by TTS to clone that user's
// voice. Existence requires both the metadata record AND the on-disk file;
// any partial state yields "absent". Grounded on the GORM model/Store
// pattern in internal/callcontext/types.go and store.go.
package voiceprofile

import (
	"time"

	"gorm.io/gorm"
)

// Record is the Postgres-backed metadata row for one voice profile.
type Record struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement"`
	UserID             string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex"`
	ReferenceAudioPath string    `gorm:"column:reference_audio_path;type:text;not null"`
	Language           string    `gorm:"column:language;type:varchar(20);not null;default:''"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamp;not null;default:NOW()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (Record) TableName() string {
	return "voice_profiles"
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}
