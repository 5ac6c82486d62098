// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package directory provides the default GORM-backed UserDirectory and
// RoomRegistry adapters: the core only ever reads these two tables,
// owned and mutated by an external REST/CRUD service out of scope here.
// Grounded on the GORM model/Store shape of internal/voiceprofile/store.go
// and api/endpoint-api's entity pattern.
package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rapidaai/translate/internal/ports"
)

// UserRecord is the read-only projection of the external user table this
// core depends on: speaks_languages/understands_languages default to
// ["en"], created outside the core.
type UserRecord struct {
	ID       string `gorm:"column:id;primaryKey"`
	Username string `gorm:"column:username"`
	FullName string `gorm:"column:full_name"`
}

func (UserRecord) TableName() string { return "users" }

// RoomRecord is the read-only projection of the external room table.
type RoomRecord struct {
	ID string `gorm:"column:id;primaryKey"`
}

func (RoomRecord) TableName() string { return "rooms" }

// GormUserDirectory implements ports.UserDirectory against the shared
// Postgres handle (read-only: the core never writes to the users table).
type GormUserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory constructs a GormUserDirectory.
func NewUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) Get(ctx context.Context, userID string) (ports.UserInfo, error) {
	var rec UserRecord
	err := d.db.WithContext(ctx).Where("id = ?", userID).First(&rec).Error
	if err != nil {
		return ports.UserInfo{}, fmt.Errorf("directory: user lookup failed for %s: %w", userID, err)
	}
	return ports.UserInfo{UserID: rec.ID, Username: rec.Username, FullName: rec.FullName}, nil
}

// GormRoomRegistry implements ports.RoomRegistry against the shared
// Postgres handle.
type GormRoomRegistry struct {
	db *gorm.DB
}

// NewRoomRegistry constructs a GormRoomRegistry.
func NewRoomRegistry(db *gorm.DB) *GormRoomRegistry {
	return &GormRoomRegistry{db: db}
}

func (r *GormRoomRegistry) Exists(ctx context.Context, roomID string) (bool, error) {
	var rec RoomRecord
	err := r.db.WithContext(ctx).Where("id = ?", roomID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("directory: room lookup failed for %s: %w", roomID, err)
	}
	return true, nil
}
