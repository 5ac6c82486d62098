package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&UserRecord{}, &RoomRecord{}))
	return db
}

func TestUserDirectoryGetResolvesDisplayIdentity(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&UserRecord{ID: "u1", Username: "alice", FullName: "Alice Example"}).Error)

	dir := NewUserDirectory(db)
	info, err := dir.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "Alice Example", info.FullName)
}

func TestUserDirectoryGetErrorsWhenUnknown(t *testing.T) {
	dir := NewUserDirectory(newTestDB(t))
	_, err := dir.Get(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestRoomRegistryExistsTrueForKnownRoom(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&RoomRecord{ID: "r1"}).Error)

	reg := NewRoomRegistry(db)
	ok, err := reg.Exists(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRoomRegistryExistsFalseForUnknownRoom(t *testing.T) {
	reg := NewRoomRegistry(newTestDB(t))
	ok, err := reg.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
