package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ImageOrigin discriminates where an image reference points.
type ImageOrigin string

const (
	OriginLocal  ImageOrigin = "local"  // a path on the local filesystem
	OriginRemote ImageOrigin = "remote" // an http(s) URL to download
	OriginInline ImageOrigin = "inline" // a data:image/...;base64,... value
)

// ImageRef is a single image reference from the request, classified by
// origin. The raw value is kept verbatim; ingestion consumes it exactly once
// and replaces it with a resolved local path.
type ImageRef struct {
	Raw    string
	Origin ImageOrigin
}

// ClassifyImage derives the origin of a raw image reference.
func ClassifyImage(raw string) ImageRef {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return ImageRef{Raw: raw, Origin: OriginRemote}
	case strings.HasPrefix(raw, "data:"):
		return ImageRef{Raw: raw, Origin: OriginInline}
	default:
		return ImageRef{Raw: raw, Origin: OriginLocal}
	}
}

// PublishRequest is one publish operation: an ordered set of images plus the
// note's title and content. Immutable once ingestion starts.
type PublishRequest struct {
	Images        []ImageRef
	Title         string
	Content       string
	CorrelationID string
}

// EnsureCorrelationID assigns a fresh UUID when the caller supplied none, so
// logs and the final result stay correlatable.
func (r *PublishRequest) EnsureCorrelationID() {
	if r.CorrelationID == "" {
		r.CorrelationID = uuid.NewString()
	}
}

// wireRequest mirrors the JSON object accepted on stdin. The singular
// "image" field is the legacy form of "images".
type wireRequest struct {
	Images        []string `json:"images"`
	Image         string   `json:"image"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	CorrelationID string   `json:"correlationId"`
}

// ParseRequest decodes one JSON line into a PublishRequest. Title is the
// only hard requirement at this stage; an empty image list parses fine and
// fails later in ingestion, after a correlation id exists to report under.
func ParseRequest(line string) (*PublishRequest, error) {
	var wire wireRequest
	if err := json.Unmarshal([]byte(line), &wire); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}

	raws := wire.Images
	if len(raws) == 0 && wire.Image != "" {
		raws = []string{wire.Image}
	}

	req := &PublishRequest{
		Title:         wire.Title,
		Content:       wire.Content,
		CorrelationID: wire.CorrelationID,
	}
	for _, raw := range raws {
		req.Images = append(req.Images, ClassifyImage(raw))
	}

	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	return req, nil
}

// RequestFromArgs reconstructs a request from positional command-line
// arguments: image path, title, optional content.
func RequestFromArgs(args []string) (*PublishRequest, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected arguments: <image> <title> [content]")
	}
	req := &PublishRequest{
		Images: []ImageRef{ClassifyImage(args[0])},
		Title:  args[1],
	}
	if len(args) > 2 {
		req.Content = args[2]
	}
	return req, nil
}
