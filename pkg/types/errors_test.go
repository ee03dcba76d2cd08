package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureErrorCarriesCodeThroughWrapping(t *testing.T) {
	root := errors.New("connection refused")
	failure := WrapFailure(CodeDownloadFailed, root, "downloading %q", "https://img.example/a.png")
	wrapped := fmt.Errorf("resolving image 2: %w", failure)

	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeDownloadFailed, code)
	assert.ErrorIs(t, wrapped, root)
	assert.Contains(t, wrapped.Error(), "DownloadFailed")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestFailfFormatsWithoutCause(t *testing.T) {
	failure := Failf(CodeImageNotFound, "image not found: %s", "/tmp/missing.png")

	assert.Equal(t, "ImageNotFound: image not found: /tmp/missing.png", failure.Error())
	assert.Nil(t, failure.Unwrap())
}

func TestCodeOfPlainError(t *testing.T) {
	_, ok := CodeOf(errors.New("plain"))
	assert.False(t, ok)
}
