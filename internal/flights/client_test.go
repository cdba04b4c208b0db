package flights

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/pkg/logger"
)

const sampleStates = `{
	"time": 1761573600,
	"states": [
		["76cdb5", "SQ118   ", "Singapore", 1761573599, 1761573599, 103.95, 1.33, 900.0, false, 80.2, 200.0, -4.5, null, 914.4, "2301", false, 0],
		["7c6b2d", "QFA1    ", "Australia", 1761573599, 1761573599, 104.02, 1.41, null, false, null, 10.0, 0.0, null, null, null, false, 0],
		["76aa01", "TGW12   ", "Singapore", 1761573599, 1761573599, 103.99, 1.36, 0.0, true, 3.0, 90.0, 0.0, null, 0.0, null, false, 0]
	]
}`

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.APIBaseURL = url
	cfg.FetchIntervalSeconds = 3600
	cfg.MinRequestIntervalSeconds = 0
	return cfg
}

func TestFetchStatesDecodesTuples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/states/all", r.URL.Path)
		assert.Equal(t, "1.2", r.URL.Query().Get("lamin"))
		assert.Equal(t, "103.8", r.URL.Query().Get("lomin"))
		assert.Equal(t, "1.5", r.URL.Query().Get("lamax"))
		assert.Equal(t, "104.1", r.URL.Query().Get("lomax"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(sampleStates))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), logger.NewNop())
	states, err := client.FetchStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 3)

	assert.Equal(t, "76cdb5", states[0].ICAO24)
	assert.Equal(t, "SQ118   ", states[0].Callsign)
	assert.Equal(t, "Singapore", states[0].OriginCountry)
	assert.Equal(t, "900 m", states[0].Altitude)
	assert.Equal(t, "80 m/s", states[0].Velocity)
	assert.InDelta(t, 1.33, states[0].Latitude, 1e-9)
	assert.InDelta(t, 103.95, states[0].Longitude, 1e-9)
	assert.False(t, states[0].OnGround)

	assert.Equal(t, NotAvailable, states[1].Altitude)
	assert.Equal(t, NotAvailable, states[1].Velocity)

	assert.True(t, states[2].OnGround)
}

func TestFetchStatesNullStates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time": 1761573600, "states": null}`))
	}))
	defer srv.Close()

	states, err := NewClient(testConfig(srv.URL), logger.NewNop()).FetchStates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestFetchStatesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), logger.NewNop()).FetchStates(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestDecodeStateShortTuple(t *testing.T) {
	raw := decodeState([]any{"abc123"})
	assert.Equal(t, "abc123", raw.ICAO24)
	assert.Equal(t, "", raw.Callsign)
	assert.Equal(t, NotAvailable, raw.Altitude)
	assert.False(t, raw.OnGround)
}

func TestDecodeStateKeepsAltitudeUnderThreshold(t *testing.T) {
	raw := decodeState([]any{"76cdb5", "SQ118 ", "Singapore", nil, nil, 103.99, 1.36, 999.6, false, 70.8})
	assert.Equal(t, "999 m", raw.Altitude)
	assert.Equal(t, "70 m/s", raw.Velocity)

	f := Transform(raw, FixedEstimator{Type: Catalog[0], Load: 80})
	assert.Equal(t, StatusLanding, f.Status)
	assert.Equal(t, "5 min", f.Arrival)
}

func TestClientUsesCachedToken(t *testing.T) {
	var tokenCalls atomic.Int64
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "driver-app", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":1800}`))
	}))
	defer authSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"time": 1, "states": []}`))
	}))
	defer apiSrv.Close()

	credsPath := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(credsPath, []byte(`{"client_id":"driver-app","client_secret":"s3cret"}`), 0o600))

	cfg := testConfig(apiSrv.URL)
	cfg.CredentialsPath = credsPath
	cfg.TokenURL = authSrv.URL
	client := NewClient(cfg, logger.NewNop())

	for i := 0; i < 3; i++ {
		_, err := client.FetchStates(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), tokenCalls.Load())
}

func TestTokenManagerRefreshesAfterExpiry(t *testing.T) {
	var n atomic.Int64
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if n.Add(1) == 1 {
			w.Write([]byte(`{"access_token":"first","expires_in":300}`))
			return
		}
		w.Write([]byte(`{"access_token":"second","expires_in":300}`))
	}))
	defer authSrv.Close()

	now := time.Date(2025, 10, 27, 8, 0, 0, 0, time.UTC)
	tm := NewTokenManager(Credentials{ClientID: "id", ClientSecret: "secret"}, authSrv.URL, nil)
	tm.now = func() time.Time { return now }

	tok, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	now = now.Add(4 * time.Minute)
	tok, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	now = now.Add(2 * time.Minute)
	tok, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", tok)
}

func TestTokenManagerStaticToken(t *testing.T) {
	tm := NewTokenManager(Credentials{AccessToken: "static"}, "http://127.0.0.1:1/unused", nil)
	tok, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", tok)
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "nope.json")
	_, err := LoadCredentials(missing)
	assert.Error(t, err)

	incomplete := filepath.Join(dir, "incomplete.json")
	require.NoError(t, os.WriteFile(incomplete, []byte(`{"client_id":"only-id"}`), 0o600))
	_, err = LoadCredentials(incomplete)
	assert.Error(t, err)

	ok := filepath.Join(dir, "ok.json")
	require.NoError(t, os.WriteFile(ok, []byte(`{"access_token":"abc"}`), 0o600))
	creds, err := LoadCredentials(ok)
	require.NoError(t, err)
	assert.Equal(t, "abc", creds.AccessToken)
}

func TestFetchStatesHonoursRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time": 1, "states": []}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MinRequestIntervalSeconds = 60
	client := NewClient(cfg, logger.NewNop())

	_, err := client.FetchStates(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.FetchStates(ctx)
	assert.ErrorContains(t, err, "rate limit")
}
