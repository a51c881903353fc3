package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugithub/docugithub/internal/failure"
)

func TestClassify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Timeout: time.Second})
	req, err := c.Request(context.Background())
	require.NoError(t, err)
	resp, err := req.Get("/ok")
	assert.NoError(t, Classify("GET /ok", resp, err))
}

func TestClassify_NoRetryOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, strings.Repeat("x", 500), http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})
	req, err := c.Request(context.Background())
	require.NoError(t, err)
	resp, err := req.Post("/analyze")
	cerr := Classify("POST analyze", resp, err)

	require.Error(t, cerr)
	assert.True(t, failure.Is(cerr, failure.BackendFailure))
	var fe *failure.Error
	require.ErrorAs(t, cerr, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Less(t, len(fe.Message), 300)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClassify_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second})
	req, err := c.Request(context.Background())
	require.NoError(t, err)
	resp, err := req.Get("/")
	assert.True(t, failure.Is(Classify("GET /", resp, err), failure.NetworkFailure))
}

func TestRequest_RateLimitHonorsContext(t *testing.T) {
	c := New(Options{RequestsPerSecond: 0.001})
	_, err := c.Request(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Request(ctx)
	assert.True(t, failure.Is(err, failure.NetworkFailure))
}
