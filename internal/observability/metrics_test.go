package observability

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/IshaanNene/deskrank/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestCounters(t *testing.T) {
	m := NewMetrics(testLogger)
	m.PageFetched(types.SourceZenn, nil)
	m.PageFetched(types.SourceZenn, nil)
	m.PageFetched(types.SourceZenn, errors.New("boom"))
	m.Discovered(types.SourceZenn, 4)
	m.Skipped(types.SourceZenn, 0)

	if got := testutil.ToFloat64(m.pages.WithLabelValues("zenn", "ok")); got != 2 {
		t.Errorf("ok pages = %v", got)
	}
	if got := testutil.ToFloat64(m.pages.WithLabelValues("zenn", "error")); got != 1 {
		t.Errorf("error pages = %v", got)
	}
	if got := testutil.ToFloat64(m.discovered.WithLabelValues("zenn")); got != 4 {
		t.Errorf("discovered = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PageFetched(types.SourceNote, nil)
	m.Discovered(types.SourceNote, 1)
	m.SourceFailed(types.SourceNote)
	m.ItemScored(nil)
}

func TestHandlerExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.SourceFailed(types.SourceYouTube)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `deskrank_source_failures_total{source="youtube"} 1`) {
		t.Errorf("exposition missing counter:\n%s", body)
	}
}
