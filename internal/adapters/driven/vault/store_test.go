package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
)

// testSecretStore runs the SecretStore contract against a store
func testSecretStore(t *testing.T, store driven.SecretStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "spotify_tokens")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Put(ctx, "spotify_tokens", []byte("v1")))
	got, err := store.Get(ctx, "spotify_tokens")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Put(ctx, "spotify_tokens", []byte("v2")))
	got, err = store.Get(ctx, "spotify_tokens")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, store.Put(ctx, "other", []byte("x")))

	require.NoError(t, store.Delete(ctx, "spotify_tokens"))
	_, err = store.Get(ctx, "spotify_tokens")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "spotify_tokens"), "delete is idempotent")

	got, err = store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestMemoryStore(t *testing.T) {
	testSecretStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("secret")
	require.NoError(t, store.Put(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "secrets"))
	require.NoError(t, err)

	testSecretStore(t, store)
}

func TestFileStore_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secrets")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "spotify_tokens", []byte("v")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	info, err = os.Stat(store.path("spotify_tokens"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(context.Background(), "k", []byte{byte(i)}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_FailedWriteKeepsPreviousValue(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte("old")))

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	require.Error(t, store.Put(ctx, "k", []byte("new")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got)
}

func TestFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEncryptedStore(t *testing.T) {
	inner := NewMemoryStore()
	store, err := NewEncryptedStoreFromPassphrase(inner, "passphrase")
	require.NoError(t, err)

	testSecretStore(t, store)
}

func TestEncryptedStore_EncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	store, err := NewEncryptedStoreFromPassphrase(inner, "passphrase")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "spotify_tokens", []byte(`{"access_token":"abc"}`)))

	raw, err := inner.Get(ctx, "spotify_tokens")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access_token")
	assert.Equal(t, byte(blobVersion), raw[0])

	wrong, err := NewEncryptedStoreFromPassphrase(inner, "wrong")
	require.NoError(t, err)
	_, err = wrong.Get(ctx, "spotify_tokens")
	assert.True(t, errors.Is(err, ErrDecryptionFailed))
}

func TestEncryptedStore_EmptyPassphrase(t *testing.T) {
	_, err := NewEncryptedStoreFromPassphrase(NewMemoryStore(), "")
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}
