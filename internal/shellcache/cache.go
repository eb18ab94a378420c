// Package shellcache keeps the web shell usable offline. A Transport serves
// shell assets from a named cache generation, falls back to the network on a
// miss, and never touches the device's live endpoints.
package shellcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// CacheHeader is set to "hit" on responses served from the cache.
const CacheHeader = "X-Cpsync-Cache"

// Assets is the fixed shell manifest cached at install time, relative to the
// shell origin.
var Assets = []string{
	"/",
	"/index.html",
	"/style.css",
	"/app.js",
	"/manifest.json",
}

// deviceEndpoints are never cached, stored or served stale.
var deviceEndpoints = []string{"/upload", "/status"}

// IsDeviceEndpoint reports whether rawURL targets a live device endpoint.
func IsDeviceEndpoint(rawURL string) bool {
	for _, pattern := range deviceEndpoints {
		if strings.Contains(rawURL, pattern) {
			return true
		}
	}
	return false
}

// cacheKey is the lookup key for u. Manifest assets ignore the query string,
// so the connect link (/?device=...) finds the installed page.
func cacheKey(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = "/"
	}
	if !slices.Contains(Assets, p) || (u.RawQuery == "" && !u.ForceQuery && u.Fragment == "") {
		return u.String()
	}
	bare := *u
	bare.Path = p
	bare.RawPath = ""
	bare.RawQuery = ""
	bare.ForceQuery = false
	bare.Fragment = ""
	bare.RawFragment = ""
	return bare.String()
}

// Install fetches every manifest asset from origin through rt and stores them
// under the live generation. Either all assets are stored or none are. A
// generation that already holds the whole manifest for origin is left as is,
// so a restart without network access keeps the installed shell.
func (c *Cache) Install(ctx context.Context, origin string, rt http.RoundTripper) error {
	if rt == nil {
		rt = http.DefaultTransport
	}
	origin = strings.TrimRight(origin, "/")

	if c.installed(ctx, origin) {
		c.logger.Debug("shell cache already installed",
			zap.String("generation", c.generation),
			zap.String("origin", origin))
		return nil
	}

	entries := make([]Entry, 0, len(Assets))
	for _, asset := range Assets {
		assetURL := origin + asset
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
		if err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
		resp, err := rt.RoundTrip(req)
		if err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("install %s: read body: %w", asset, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("install %s: status %d", asset, resp.StatusCode)
		}
		entries = append(entries, Entry{URL: assetURL, Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body})
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("install: begin: %w", err)
	}
	for _, entry := range entries {
		if err := putEntry(ctx, tx, c.generation, entry); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("install: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("install: commit: %w", err)
	}
	c.logger.Info("shell cache installed",
		zap.String("generation", c.generation),
		zap.String("origin", origin),
		zap.Int("assets", len(entries)))
	return nil
}

func (c *Cache) installed(ctx context.Context, origin string) bool {
	keys, err := c.Keys(ctx, c.generation)
	if err != nil {
		c.logger.Warn("shell cache lookup failed", zap.Error(err))
		return false
	}
	for _, asset := range Assets {
		if _, found := slices.BinarySearch(keys, origin+asset); !found {
			return false
		}
	}
	return true
}

// Activate purges every generation other than the live one and returns the
// names it removed.
func (c *Cache) Activate(ctx context.Context) ([]string, error) {
	names, err := c.Generations(ctx)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	var purged []string
	for _, name := range names {
		if name == c.generation {
			continue
		}
		if err := c.DeleteGeneration(ctx, name); err != nil {
			return purged, fmt.Errorf("activate: %w", err)
		}
		purged = append(purged, name)
	}
	if len(purged) > 0 {
		c.logger.Info("shell cache generations purged",
			zap.String("generation", c.generation),
			zap.Strings("purged", purged))
	}
	return purged, nil
}
