package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/platform/gcp"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

func TestLocalStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	s := NewLocalStore(dir)

	loc, err := s.Put(context.Background(), "chart.mmd", "text/vnd.mermaid", []byte("flowchart TD"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chart.mmd"), loc)

	loc, err = s.Put(context.Background(), "chart.mmd", "text/vnd.mermaid", []byte("flowchart LR"))
	require.NoError(t, err)
	b, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "flowchart LR", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestLocalStoreRejectsPaths(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	for _, name := range []string{"", "..", "../x.mmd", "a/b.mmd"} {
		_, err := s.Put(context.Background(), name, "", nil)
		assert.Error(t, err, name)
	}
}

func TestLocalStoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalStore(t.TempDir()).Put(ctx, "a.mmd", "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(context.Background(), logger.NewNop(), config.ArtifactsConfig{Mode: "local", OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)
	require.NoError(t, s.Close())

	_, err = New(context.Background(), logger.NewNop(), config.ArtifactsConfig{Mode: "s3"})
	assert.Error(t, err)
}

func TestGCSStoreKey(t *testing.T) {
	assert.Equal(t, "a.png", NewGCSStore(nil, "b", "").key("a.png"))
	assert.Equal(t, "runs/x/a.png", NewGCSStore(nil, "b", "/runs/x/").key("a.png"))
}

func TestGCSStoreEmulator(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("FLOWCHART_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set FLOWCHART_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	host := gcp.EmulatorHost()
	if host == "" {
		host = "http://127.0.0.1:4443"
		t.Setenv("STORAGE_EMULATOR_HOST", host)
	}

	bucket := fmt.Sprintf("flowchart-it-%d", time.Now().UnixNano())
	resp, err := http.Post(host+"/storage/v1/b", "application/json", strings.NewReader(`{"name":"`+bucket+`"}`))
	if err != nil {
		t.Skipf("storage emulator not reachable at %s: %v", host, err)
	}
	_ = resp.Body.Close()

	ctx := context.Background()
	s, err := New(ctx, logger.NewNop(), config.ArtifactsConfig{Mode: "gcs", Bucket: bucket, Prefix: "it"})
	require.NoError(t, err)
	defer s.Close()

	loc, err := s.Put(ctx, "chart.mmd", "text/vnd.mermaid", []byte("flowchart TD"))
	require.NoError(t, err)
	assert.Equal(t, "gs://"+bucket+"/it/chart.mmd", loc)

	r, err := s.(*GCSStore).client.Bucket(bucket).Object("it/chart.mmd").NewReader(ctx)
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "flowchart TD", string(b))
}
