package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageBackendFilesystem, cfg.StorageBackend)
	assert.Equal(t, MetadataBackendKV, cfg.MetadataBackend)
	assert.EqualValues(t, 100*1024*1024, cfg.MaxBytes())
	assert.Equal(t, minTTLFloor, cfg.MinTTL)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"DROPVAULT_ADDR":               ":9090",
		"DROPVAULT_MAX_FILE_SIZE_MB":   "5",
		"DROPVAULT_STORAGE_BACKEND":    "s3",
		"DROPVAULT_METADATA_BACKEND":   "blobmeta",
		"DROPVAULT_ALLOWED_MIME_TYPES": "image/png,text/plain",
	})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.EqualValues(t, 5, cfg.MaxFileSizeMB)
	assert.Equal(t, StorageBackendS3, cfg.StorageBackend)
	assert.Equal(t, MetadataBackendBlobMeta, cfg.MetadataBackend)
	assert.Len(t, cfg.AllowedMimeTypes, 2)
}

func TestLoadRejectsInvalidStorageBackend(t *testing.T) {
	withEnv(t, map[string]string{"DROPVAULT_STORAGE_BACKEND": "bogus"})
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidAddr(t *testing.T) {
	withEnv(t, map[string]string{"DROPVAULT_ADDR": "not-an-address"})
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsEscapingDataDir(t *testing.T) {
	withEnv(t, map[string]string{"DROPVAULT_DATA_DIR": "../escape"})
	_, err := Load()
	assert.Error(t, err)
}
