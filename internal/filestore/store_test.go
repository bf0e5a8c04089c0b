package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/lexassist/internal/config"
)

func TestLocalStoreSaveAndOpen(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	body := "{\"id\":\"1\"}\n"
	require.NoError(t, store.Save(context.Background(), "telemetry/2026/10/archive.ndjson", strings.NewReader(body), int64(len(body))))

	rc, err := store.Open(context.Background(), "telemetry/2026/10/archive.ndjson")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, body, string(data))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	for _, key := range []string{"", "../x", "/etc/passwd", "a/../../b"} {
		err := store.Save(context.Background(), key, strings.NewReader("x"), 1)
		require.Error(t, err, key)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local"})
	require.Error(t, err)
}

func TestS3StoreRequiresCredentials(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "s3", Data: map[string]interface{}{"bucket": "b"}})
	require.Error(t, err)
}

func TestS3ObjectKeyAndEndpoint(t *testing.T) {
	s := &s3Store{prefix: "lexassist"}
	key, err := s.objectKey("telemetry/a.ndjson")
	require.NoError(t, err)
	require.Equal(t, "lexassist/telemetry/a.ndjson", key)
	require.Equal(t, "https://minio.local:9000", normalizeEndpoint("minio.local:9000/", true))
	require.Equal(t, "http://localhost:9000", normalizeEndpoint("http://localhost:9000", false))
	require.Empty(t, normalizeEndpoint("", true))
}
