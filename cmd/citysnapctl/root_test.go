package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fakeGateway(t *testing.T, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/building/info":
			if seen != nil {
				_ = json.NewDecoder(r.Body).Decode(seen)
			}
			_, _ = w.Write([]byte(`{"building":{"name":"Pashkov House","year_built":1786},"source":["OpenStreetMap API"]}`))
		case "/api/v1/health":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"error","checks":{"cache":"error"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup_Address(t *testing.T) {
	var seen map[string]any
	srv := fakeGateway(t, &seen)

	out, err := runCmd(t, "lookup", "--server", srv.URL, "--address", "Vozdvizhenka 3/5")
	require.NoError(t, err)

	assert.Equal(t, "Vozdvizhenka 3/5", seen["address"])
	assert.Contains(t, out, `"name": "Pashkov House"`)
	assert.Contains(t, out, `"year_built": 1786`)
}

func TestLookup_CoordinatesAndImage(t *testing.T) {
	var seen map[string]any
	srv := fakeGateway(t, &seen)
	img := filepath.Join(t.TempDir(), "facade.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o600))

	_, err := runCmd(t, "lookup", "--server", srv.URL, "--lat", "55.7", "--lon", "37.6", "--image", img)
	require.NoError(t, err)

	coords, ok := seen["coordinates"].(map[string]any)
	require.True(t, ok, "coordinates missing: %v", seen)
	assert.InDelta(t, 55.7, coords["lat"], 1e-9)
	assert.Equal(t, "anBlZw==", seen["image_base64"])
}

func TestLookup_FlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing", []string{"lookup"}, "either --address"},
		{"lat only", []string{"lookup", "--lat", "1"}, "--lat and --lon"},
		{"missing image", []string{"lookup", "--address", "x", "--image", "/nonexistent/file.jpg"}, "read image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q does not contain %q", err, tt.want)
		})
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := fakeGateway(t, nil)

	out, err := runCmd(t, "health", "--server", srv.URL, "--retries", "0")
	require.Error(t, err)
	assert.Contains(t, out, `"status": "error"`)
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}
