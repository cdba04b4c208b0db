package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/pkg/logger"
)

func get(t *testing.T, ts *testServer, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(ts.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestStaticServesIndex(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := get(t, ts, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>dash</html>", body)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
}

func TestStaticServesAssets(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := get(t, ts, "/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log(1)", body)
	assert.Equal(t, "public, max-age=300", resp.Header.Get("Cache-Control"))
}

func TestStaticFallsBackForClientRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := get(t, ts, "/zones/settings")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>dash</html>", body)

	resp, _ = get(t, ts, "/missing.css")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	static := filepath.Join(root, "www")
	require.NoError(t, os.Mkdir(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0o644))

	h := NewStaticFileHandler(static, logger.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
