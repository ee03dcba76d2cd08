package images

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/types"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(config.ImagesConfig{
		TempDir:         t.TempDir(),
		DownloadTimeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestResolvePreservesOrderAcrossOrigins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote-bytes"))
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(localPath, []byte("local-bytes"), 0o644))

	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("inline-bytes"))

	refs := []types.ImageRef{
		types.ClassifyImage(localPath),
		types.ClassifyImage(server.URL + "/photo.png"),
		types.ClassifyImage(inline),
	}

	resolver := newTestResolver(t)
	resolved, err := resolver.Resolve(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	wantBytes := []string{"local-bytes", "remote-bytes", "inline-bytes"}
	wantOrigins := []types.ImageOrigin{types.OriginLocal, types.OriginRemote, types.OriginInline}
	for i, img := range resolved {
		data, err := os.ReadFile(img.Path)
		require.NoError(t, err)
		assert.Equal(t, wantBytes[i], string(data), "image %d out of order", i)
		assert.Equal(t, wantOrigins[i], img.Origin)
	}

	paths := Paths(resolved)
	require.Len(t, paths, 3)
	assert.Equal(t, localPath, paths[0])
}

func TestResolveEmptyInputIsRejected(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image path required")

	code, ok := types.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeImageNotFound, code)
}

func TestResolveMissingLocalFile(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), []types.ImageRef{
		types.ClassifyImage("/nonexistent/cover.png"),
	})
	require.Error(t, err)

	code, ok := types.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeImageNotFound, code)
}

func TestResolveDownloadFailureLeavesNoPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	tempDir := t.TempDir()
	resolver := NewResolver(config.ImagesConfig{
		TempDir:         tempDir,
		DownloadTimeout: 5 * time.Second,
	}, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), []types.ImageRef{
		types.ClassifyImage(server.URL + "/missing.jpg"),
	})
	require.Error(t, err)

	code, ok := types.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeDownloadFailed, code)

	entries, readErr := os.ReadDir(tempDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "failed download must not leave a partial file")
}

func TestResolveDownloadExtensionFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer server.Close()

	tests := []struct {
		name    string
		urlPath string
		wantExt string
	}{
		{name: "png extension kept", urlPath: "/pics/shot.PNG", wantExt: ".png"},
		{name: "no extension defaults to jpg", urlPath: "/pics/shot", wantExt: ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(t)
			resolved, err := resolver.Resolve(context.Background(), []types.ImageRef{
				types.ClassifyImage(server.URL + tt.urlPath),
			})
			require.NoError(t, err)
			require.Len(t, resolved, 1)
			assert.Equal(t, tt.wantExt, filepath.Ext(resolved[0].Path))
		})
	}
}

func TestResolveInlineExtensionMapping(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})

	tests := []struct {
		subtype string
		wantExt string
	}{
		{subtype: "jpeg", wantExt: ".jpg"},
		{subtype: "png", wantExt: ".png"},
		{subtype: "webp", wantExt: ".webp"},
	}

	for _, tt := range tests {
		t.Run(tt.subtype, func(t *testing.T) {
			resolver := newTestResolver(t)
			resolved, err := resolver.Resolve(context.Background(), []types.ImageRef{
				types.ClassifyImage("data:image/" + tt.subtype + ";base64," + payload),
			})
			require.NoError(t, err)
			require.Len(t, resolved, 1)
			assert.Equal(t, tt.wantExt, filepath.Ext(resolved[0].Path))
		})
	}
}

func TestResolveInlineMalformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not an image data uri", value: "data:text/plain;base64,AAAA"},
		{name: "missing base64 marker", value: "data:image/png;payload"},
		{name: "unparsable base64", value: "data:image/png;base64,!!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(t)
			_, err := resolver.Resolve(context.Background(), []types.ImageRef{
				types.ClassifyImage(tt.value),
			})
			require.Error(t, err)

			code, ok := types.CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, types.CodeInvalidEncoding, code)
		})
	}
}
