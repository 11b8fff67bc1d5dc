// Package telemetry provides minimal, low-overhead request timing.
// By default only slow requests are logged; full traces are recorded for
// a small sample of requests.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type ctxKeyType struct{}

var (
	writerOnce    sync.Once
	writerCh      chan []byte
	requestCtr    uint64
	spanCtr       uint64
	sampleRate    = 0.001
	slowThreshold = 200 * time.Millisecond
	outputDir     = "logs"
	dirMu         sync.Mutex
)

// Span is a timing interval relative to request start, in milliseconds.
type Span struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Op       string `json:"op"`
	StartMs  int64  `json:"start_ms"`
	Duration int64  `json:"duration_ms"`
}

type trace struct {
	requestID string
	op        string
	status    int
	startTime time.Time
	mu        sync.Mutex
	spans     []Span
	spanStack []string
}

// SetOutputDir redirects the telemetry sink; call before the first request.
func SetOutputDir(dir string) {
	dirMu.Lock()
	defer dirMu.Unlock()
	if dir != "" {
		outputDir = dir
	}
}

func initWriter() {
	writerCh = make(chan []byte, 1024)
	go func() {
		dirMu.Lock()
		dir := outputDir
		dirMu.Unlock()
		_ = os.MkdirAll(dir, 0o755)
		f, err := os.OpenFile(filepath.Join(dir, "telemetry.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		for b := range writerCh {
			_, _ = f.Write(b)
		}
	}()
}

func emit(b []byte) {
	writerOnce.Do(initWriter)
	select {
	case writerCh <- b:
	default:
		// drop rather than block the request path
	}
}

// Middleware wraps the handler and records request timing plus sampled
// spans.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := genRequestID()

		var t *trace
		if shouldSample(r) {
			t = &trace{requestID: reqID, op: r.URL.Path, startTime: start}
			rootID := genSpanID()
			t.spans = append(t.spans, Span{ID: rootID, Op: t.op})
			t.spanStack = append(t.spanStack, rootID)
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, t))
		}

		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		if t != nil {
			t.mu.Lock()
			t.status = srw.status
			b := renderTrace(t, dur)
			t.mu.Unlock()
			emit(b)
			return
		}
		if dur > slowThreshold {
			emit([]byte(fmt.Sprintf("SLOW %s op=%s duration_ms=%d status=%d\n",
				reqID, r.URL.Path, dur.Milliseconds(), srw.status)))
		}
	})
}

// StartSpan returns an end function. When the request is not sampled the
// returned function is a no-op.
func StartSpan(ctx context.Context, name string) func() {
	t, ok := ctx.Value(ctxKeyType{}).(*trace)
	if !ok {
		return func() {}
	}
	startRel := time.Since(t.startTime).Milliseconds()
	id := genSpanID()

	t.mu.Lock()
	parent := ""
	if len(t.spanStack) > 0 {
		parent = t.spanStack[len(t.spanStack)-1]
	}
	t.spans = append(t.spans, Span{ID: id, ParentID: parent, Op: name, StartMs: startRel})
	t.spanStack = append(t.spanStack, id)
	idx := len(t.spans) - 1
	t.mu.Unlock()

	return func() {
		endRel := time.Since(t.startTime).Milliseconds()
		t.mu.Lock()
		if idx < len(t.spans) {
			t.spans[idx].Duration = endRel - t.spans[idx].StartMs
		}
		if len(t.spanStack) > 0 {
			t.spanStack = t.spanStack[:len(t.spanStack)-1]
		}
		t.mu.Unlock()
	}
}

func renderTrace(t *trace, dur time.Duration) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "REQUEST %s op=%s duration_ms=%d status=%d\n", t.requestID, t.op, dur.Milliseconds(), t.status)
	for _, sp := range t.spans[1:] {
		fmt.Fprintf(&b, "  - %s id=%s start_ms=%d duration_ms=%d\n", sp.Op, sp.ID, sp.StartMs, sp.Duration)
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// SetSampleRate sets the approximate sampling rate for full traces (0..1).
func SetSampleRate(r float64) {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	sampleRate = r
}

// SetSlowThreshold sets the duration above which non-sampled requests get
// a lightweight log line.
func SetSlowThreshold(d time.Duration) {
	if d < 0 {
		d = 0
	}
	slowThreshold = d
}

func shouldSample(r *http.Request) bool {
	if r.Header.Get("X-Debug-Telemetry") == "1" {
		return true
	}
	if sampleRate <= 0 {
		return false
	}
	denom := int64(1 / sampleRate)
	if denom <= 1 {
		return true
	}
	n := int64(atomic.AddUint64(&requestCtr, 1))
	return n%denom == 0
}

func genRequestID() string {
	n := atomic.AddUint64(&requestCtr, 1)
	return fmt.Sprintf("r-%s-%d", time.Now().Format("20060102T150405"), n)
}

func genSpanID() string {
	return fmt.Sprintf("s-%d", atomic.AddUint64(&spanCtr, 1))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
