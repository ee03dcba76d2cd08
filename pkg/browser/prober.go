package browser

import (
	"context"
	"net/http"
	"time"
)

// Prober reports whether a debuggable browser answers on the local
// debugging endpoint.
type Prober interface {
	Alive(ctx context.Context) bool
}

// httpProber issues a version handshake against the endpoint's
// /json/version route.
type httpProber struct {
	url    string
	client *http.Client
}

// NewProber probes the given version URL with a short per-request timeout.
func NewProber(versionURL string) Prober {
	return &httpProber{
		url: versionURL,
		client: &http.Client{
			Timeout: time.Second,
		},
	}
}

func (p *httpProber) Alive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
