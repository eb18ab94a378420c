// Package webshell provides the embedded browser shell served by cpsync serve.
package webshell

import (
	"bytes"
	"embed"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// Origin is the pseudo origin the embedded files are installed from when no
// remote shell origin is configured.
const Origin = "http://shell.embedded"

//go:embed index.html style.css app.js manifest.json
var Assets embed.FS

// lookup maps a request path to an embedded file; "/" is the page itself.
func lookup(urlPath string) (string, []byte, bool) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "index.html"
	}
	data, err := Assets.ReadFile(name)
	if err != nil {
		return name, nil, false
	}
	return name, data, true
}

// Handler serves the embedded shell files. "/" and "/index.html" both answer
// with the page itself rather than a redirect, so either can be cached.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, data, ok := lookup(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
	})
}

// Transport answers requests from the embedded files without touching the
// network. It stands in for a remote shell origin when none is configured.
func Transport() http.RoundTripper {
	return roundTripper{}
}

type roundTripper struct{}

func (roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
	name, data, ok := lookup(req.URL.Path)
	status, contentType := http.StatusOK, mime.TypeByExtension(path.Ext(name))
	if !ok {
		status, contentType = http.StatusNotFound, "text/plain; charset=utf-8"
		data = []byte("404 page not found\n")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(data)))

	var body io.ReadCloser = io.NopCloser(bytes.NewReader(data))
	if req.Method == http.MethodHead {
		body = http.NoBody
	}
	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}
