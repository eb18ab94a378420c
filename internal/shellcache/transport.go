package shellcache

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/logging"
	"github.com/five82/cpsync/internal/metrics"
)

// Transport is a cache-first http.RoundTripper for shell assets.
type Transport struct {
	Base   http.RoundTripper
	Cache  *Cache
	Logger *zap.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil) with cache.
func NewTransport(base http.RoundTripper, cache *Cache, logger *zap.Logger) *Transport {
	return &Transport{Base: base, Cache: cache, Logger: logging.OrNop(logger)}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := logging.OrNop(t.Logger)
	if IsDeviceEndpoint(req.URL.String()) {
		metrics.RecordShellCache("bypass")
		return base.RoundTrip(req)
	}
	if req.Method != http.MethodGet || t.Cache == nil {
		return base.RoundTrip(req)
	}
	key := cacheKey(req.URL)

	entry, ok, err := t.Cache.Match(req.Context(), key)
	if err != nil {
		logger.Warn("shell cache lookup failed", zap.String("url", key), zap.Error(err))
	}
	if ok {
		metrics.RecordShellCache("hit")
		return entry.Response(req), nil
	}
	metrics.RecordShellCache("miss")

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	stored := Entry{URL: key, Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
	if err := t.Cache.Put(req.Context(), stored); err != nil {
		logger.Warn("shell cache store failed", zap.String("url", key), zap.Error(err))
	} else {
		metrics.RecordShellCache("store")
	}
	return resp, nil
}
