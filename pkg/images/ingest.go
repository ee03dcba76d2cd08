// Package images normalizes heterogeneous image references (local paths,
// remote URLs, inline base64 data URIs) into local files ready for upload.
package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/types"
)

// Resolved is an image reference normalized to a readable local file.
type Resolved struct {
	Path   string
	Origin types.ImageOrigin
}

// Resolver turns ImageRefs into files under a dedicated temp directory.
// Files it writes are never cleaned up here; the directory is fixed per
// configuration and the platform consumes the files during upload.
type Resolver struct {
	tempDir string
	client  *http.Client
	logger  *zap.Logger
}

// NewResolver creates a resolver writing into cfg.TempDir.
func NewResolver(cfg config.ImagesConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		tempDir: cfg.TempDir,
		client:  &http.Client{Timeout: cfg.DownloadTimeout},
		logger:  logger.Named("images"),
	}
}

// Resolve produces one local file per reference, preserving input order.
// Any single failure fails the whole request; there is never a partial
// result. Every returned path has been verified to exist on disk.
func (r *Resolver) Resolve(ctx context.Context, refs []types.ImageRef) ([]Resolved, error) {
	if len(refs) == 0 {
		return nil, types.Failf(types.CodeImageNotFound, "image path required")
	}

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image temp dir: %w", err)
	}

	stamp := time.Now().UnixNano()
	resolved := make([]Resolved, 0, len(refs))

	for i, ref := range refs {
		var (
			path string
			err  error
		)
		switch ref.Origin {
		case types.OriginLocal:
			path, err = r.resolveLocal(ref.Raw)
		case types.OriginRemote:
			path, err = r.download(ctx, ref.Raw, stamp, i)
		case types.OriginInline:
			path, err = r.decodeInline(ref.Raw, stamp, i)
		default:
			err = types.Failf(types.CodeInvalidEncoding, "unrecognized image reference: %s", ref.Raw)
		}
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, Resolved{Path: path, Origin: ref.Origin})
	}

	// Everything resolved is re-verified before the workflow trusts it.
	for _, img := range resolved {
		if _, err := os.Stat(img.Path); err != nil {
			return nil, types.WrapFailure(types.CodeImageNotFound, err, "resolved image missing: %s", img.Path)
		}
	}

	r.logger.Info("resolved images", zap.Int("count", len(resolved)))
	return resolved, nil
}

// Paths extracts the file paths in upload order.
func Paths(resolved []Resolved) []string {
	paths := make([]string, len(resolved))
	for i, img := range resolved {
		paths[i] = img.Path
	}
	return paths
}

func (r *Resolver) resolveLocal(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", types.WrapFailure(types.CodeImageNotFound, err, "image not found: %s", path)
	}
	return path, nil
}

func (r *Resolver) download(ctx context.Context, rawURL string, stamp int64, idx int) (string, error) {
	dest := filepath.Join(r.tempDir, fmt.Sprintf("%d-%d.%s", stamp, idx, remoteExt(rawURL)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", types.WrapFailure(types.CodeDownloadFailed, err, "invalid image URL: %s", rawURL)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", types.WrapFailure(types.CodeDownloadFailed, err, "downloading %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", types.Failf(types.CodeDownloadFailed, "downloading %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.WrapFailure(types.CodeDownloadFailed, err, "reading image body from %s", rawURL)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		os.Remove(dest)
		return "", types.WrapFailure(types.CodeDownloadFailed, err, "writing %s", dest)
	}

	r.logger.Info("downloaded image", zap.String("url", rawURL), zap.String("path", dest))
	return dest, nil
}

const (
	inlinePrefix = "data:image/"
	inlineMarker = ";base64,"
)

func (r *Resolver) decodeInline(value string, stamp int64, idx int) (string, error) {
	rest, ok := strings.CutPrefix(value, inlinePrefix)
	if !ok {
		return "", types.Failf(types.CodeInvalidEncoding, "inline image missing data:image/ prefix")
	}
	subtype, payload, ok := strings.Cut(rest, inlineMarker)
	if !ok {
		return "", types.Failf(types.CodeInvalidEncoding, "inline image missing base64 marker")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", types.WrapFailure(types.CodeInvalidEncoding, err, "decoding inline image")
	}

	dest := filepath.Join(r.tempDir, fmt.Sprintf("%d-%d.%s", stamp, idx, extForSubtype(subtype)))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		os.Remove(dest)
		return "", types.WrapFailure(types.CodeInvalidEncoding, err, "writing %s", dest)
	}

	r.logger.Info("decoded inline image", zap.String("subtype", subtype), zap.String("path", dest))
	return dest, nil
}

// extForSubtype maps a declared MIME subtype to a file extension. Only
// jpeg differs from its subtype; everything else passes through.
func extForSubtype(subtype string) string {
	if subtype == "jpeg" {
		return "jpg"
	}
	return subtype
}

// remoteExt derives a file extension from the URL path, defaulting to jpg
// when the path carries none.
func remoteExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "jpg"
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(u.Path)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}
