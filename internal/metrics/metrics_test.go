package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestHandler_ExposesRecordedSeries(t *testing.T) {
	RecordProbe("connected", "poller")
	RecordUpload(true, 1024)
	RecordUpload(false, 0)
	RecordSyncPass(2 * time.Second)
	RecordSyncRejected()
	SetQueueLength(3)
	RecordShellCache("hit")

	body := scrape(t)
	for _, want := range []string{
		`cpsync_probes_total{outcome="connected",trigger="poller"}`,
		`cpsync_uploads_total{result="success"}`,
		`cpsync_uploads_total{result="failure"}`,
		`cpsync_upload_bytes_total`,
		`cpsync_sync_pass_duration_seconds_count`,
		`cpsync_sync_rejected_total`,
		`cpsync_queue_length 3`,
		`cpsync_shell_cache_requests_total{result="hit"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
