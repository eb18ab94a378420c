package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizeAddress_PrefixesScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.168.4.1", "http://192.168.4.1"},
		{"  192.168.4.1:8080  ", "http://192.168.4.1:8080"},
		{"crosspoint.local", "http://crosspoint.local"},
		{"http://192.168.4.1", "http://192.168.4.1"},
		{"https://reader.lan/", "https://reader.lan"},
		{"HTTP://10.0.0.2/status?x=1#frag", "HTTP://10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAddress(tt.in)
			if err != nil {
				t.Fatalf("NormalizeAddress(%q) returned error: %v", tt.in, err)
			}
			if !strings.EqualFold(got, tt.want) {
				t.Fatalf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeAddress_RejectsEmpty(t *testing.T) {
	if _, err := NormalizeAddress("   "); err == nil {
		t.Fatalf("NormalizeAddress returned nil error for blank input")
	}
}

func TestProbe_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    ProbeOutcome
		reason  string
		wantErr error
	}{
		{
			name: "ready",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(StatusResponse{Ready: true})
			},
			want:   ProbeConnected,
			reason: "Connected",
		},
		{
			name: "not ready",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(StatusResponse{Ready: false})
			},
			want:    ProbeNotReady,
			reason:  "Device not ready",
			wantErr: ErrNotReady,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "busy", http.StatusServiceUnavailable)
			},
			want:    ProbeNotReady,
			reason:  "Device not ready",
			wantErr: ErrNotReady,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not-json"))
			},
			want:    ProbeNotReady,
			reason:  "Device not ready",
			wantErr: ErrNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				tt.handler(w, r)
			}))
			t.Cleanup(server.Close)

			c, err := NewClient(server.URL)
			if err != nil {
				t.Fatalf("NewClient returned error: %v", err)
			}
			res := c.Probe(context.Background())
			if res.Outcome != tt.want {
				t.Fatalf("Probe outcome = %v, want %v (err=%v)", res.Outcome, tt.want, res.Err)
			}
			if res.Reason() != tt.reason {
				t.Fatalf("Reason = %q, want %q", res.Reason(), tt.reason)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Fatalf("Probe err = %v, want %v", res.Err, tt.wantErr)
			}
			if gotPath != StatusPath {
				t.Fatalf("request path = %q, want %q", gotPath, StatusPath)
			}
		})
	}
}

func TestProbe_TimesOut(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithProbeTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	start := time.Now()
	res := c.Probe(context.Background())
	if res.Outcome != ProbeTimedOut {
		t.Fatalf("Probe outcome = %v, want timed_out (err=%v)", res.Outcome, res.Err)
	}
	if res.Reason() != "Timeout" {
		t.Fatalf("Reason = %q, want Timeout", res.Reason())
	}
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Probe err = %v, want ErrTimeout", res.Err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Probe took %v, want it bounded by the probe timeout", elapsed)
	}
}

func TestProbe_UnreachableFails(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res := c.Probe(context.Background())
	if res.Outcome != ProbeFailed {
		t.Fatalf("Probe outcome = %v, want failed", res.Outcome)
	}
	if res.Reason() != "Connection failed" {
		t.Fatalf("Reason = %q, want Connection failed", res.Reason())
	}
	if !errors.Is(res.Err, ErrUnreachable) {
		t.Fatalf("Probe err = %v, want ErrUnreachable", res.Err)
	}
}

func TestUpload_SendsMultipartAndHeader(t *testing.T) {
	t.Parallel()

	var gotHeader, gotFormName, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != UploadPath {
			http.NotFound(w, r)
			return
		}
		gotHeader = r.Header.Get(FilenameHeader)
		file, header, err := r.FormFile(UploadField)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFormName = header.Filename
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := c.Upload(context.Background(), "dune.epub", strings.NewReader("spice")); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if gotHeader != "dune.epub" {
		t.Fatalf("%s = %q, want dune.epub", FilenameHeader, gotHeader)
	}
	if gotFormName != "dune.epub" {
		t.Fatalf("multipart filename = %q, want dune.epub", gotFormName)
	}
	if gotBody != "spice" {
		t.Fatalf("multipart body = %q, want spice", gotBody)
	}
}

func TestUpload_NonSuccessStatusIsRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "disk full", http.StatusInsufficientStorage)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	err = c.Upload(context.Background(), "a.txt", strings.NewReader("x"))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Upload error = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "507") {
		t.Fatalf("Upload error = %q, want status code", err.Error())
	}
}
