// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package voiceprofile

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rapidaai/translate/internal/commons"
)

// newMockedStore wires gorm against a sqlmock-backed sql.DB, for exercising
// error paths an in-memory sqlite round-trip can't trigger (a dropped
// connection, a constraint violation returned by the driver).
func newMockedStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	return NewStore(gdb, commons.NewTestLogger()), mock
}

func TestGetWrapsUnderlyingDriverError(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.ExpectQuery(`SELECT \* FROM "voice_profiles"`).
		WillReturnError(assertErr("connection reset by peer"))

	profile, err := store.Get(context.Background(), "u1")
	assert.Nil(t, profile)
	assert.ErrorContains(t, err, "voiceprofile: lookup failed for u1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertWrapsUnderlyingDriverError(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.ExpectQuery(`SELECT \* FROM "voice_profiles"`).
		WillReturnError(assertErr("connection reset by peer"))

	err := store.Upsert(context.Background(), "u1", "/tmp/ref.wav", "en")
	assert.ErrorContains(t, err, "voiceprofile: upsert failed for u1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
