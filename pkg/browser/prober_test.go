package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProberAlive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"Browser":"Chrome/126.0.0.0"}`))
	}))
	defer server.Close()

	assert.True(t, NewProber(server.URL+"/json/version").Alive(context.Background()))
	assert.False(t, NewProber(server.URL+"/missing").Alive(context.Background()))
}

func TestProberDeadEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	assert.False(t, NewProber(server.URL+"/json/version").Alive(context.Background()))
}
