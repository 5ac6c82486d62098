package voiceprofile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidaai/translate/internal/commons"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Record{}))
	return NewStore(db, commons.NewTestLogger())
}

func TestGetReturnsNilWhenNoRecordExists(t *testing.T) {
	store := newTestStore(t)
	profile, err := store.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestGetReturnsNilWhenFileMissingOnDisk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "u1", "/no/such/file.wav", "en"))

	profile, err := store.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.Nil(t, profile, "metadata without a matching file on disk must be treated as absent")
}

func TestGetReturnsProfileWhenBothRecordAndFileExist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "ref.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF"), 0o644))

	require.NoError(t, store.Upsert(ctx, "u1", audioPath, "pt"))

	profile, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "u1", profile.UserID)
	assert.Equal(t, audioPath, profile.ReferenceAudioPath)
	assert.Equal(t, "pt", profile.Language)
}

func TestUpsertOverwritesExistingRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.wav")
	second := filepath.Join(dir, "second.wav")
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o644))

	require.NoError(t, store.Upsert(ctx, "u1", first, "en"))
	require.NoError(t, store.Upsert(ctx, "u1", second, "fr"))

	profile, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, second, profile.ReferenceAudioPath)
	assert.Equal(t, "fr", profile.Language)
}
