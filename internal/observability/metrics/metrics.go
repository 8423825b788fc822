// Package metrics aggregates in-memory request, login, and upload counters
// and renders them as Prometheus text exposition on /metrics.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates counters for HTTP traffic, login outcomes, and media
// uploads. A RWMutex coordinates concurrent writers.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	loginOutcomes   map[string]uint64
	uploadOutcomes  map[string]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		loginOutcomes:   make(map[string]uint64),
		uploadOutcomes:  make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not carry
// their own instrumentation handle.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveLogin records a login attempt outcome ("success", "rejected",
// "unknown_account", "error").
func (r *Recorder) ObserveLogin(outcome string) {
	r.mu.Lock()
	r.loginOutcomes[normalizeName(outcome)]++
	r.mu.Unlock()
}

// ObserveUpload records a media upload outcome ("stored", "rejected",
// "unavailable", "failed").
func (r *Recorder) ObserveUpload(outcome string) {
	r.mu.Lock()
	r.uploadOutcomes[normalizeName(outcome)]++
	r.mu.Unlock()
}

// Reset clears all counters; used by tests.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.loginOutcomes = make(map[string]uint64)
	r.uploadOutcomes = make(map[string]uint64)
	r.mu.Unlock()
}

// Handler exposes the Recorder as an http.Handler writing Prometheus text
// exposition data.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the exposition format with deterministic label ordering.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fmt.Fprintln(w, "# HELP kennapartner_http_requests_total Total HTTP requests processed.")
	fmt.Fprintln(w, "# TYPE kennapartner_http_requests_total counter")
	for _, label := range r.sortedRequestLabels() {
		fmt.Fprintf(w, "kennapartner_http_requests_total{method=%q,path=%q,status=%q} %d\n",
			label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP kennapartner_http_request_duration_seconds_sum Cumulative request duration.")
	fmt.Fprintln(w, "# TYPE kennapartner_http_request_duration_seconds_sum counter")
	for _, label := range r.sortedRequestLabels() {
		fmt.Fprintf(w, "kennapartner_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n",
			label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP kennapartner_login_attempts_total Login attempts by outcome.")
	fmt.Fprintln(w, "# TYPE kennapartner_login_attempts_total counter")
	for _, outcome := range sortedKeys(r.loginOutcomes) {
		fmt.Fprintf(w, "kennapartner_login_attempts_total{outcome=%q} %d\n", outcome, r.loginOutcomes[outcome])
	}

	fmt.Fprintln(w, "# HELP kennapartner_media_uploads_total Media uploads by outcome.")
	fmt.Fprintln(w, "# TYPE kennapartner_media_uploads_total counter")
	for _, outcome := range sortedKeys(r.uploadOutcomes) {
		fmt.Fprintf(w, "kennapartner_media_uploads_total{outcome=%q} %d\n", outcome, r.uploadOutcomes[outcome])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizePath collapses store-assigned ids so metric cardinality stays
// bounded.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if looksLikeIdentifier(segment) {
			segments[i] = ":id"
		}
	}
	normalized := strings.Join(segments, "/")
	if normalized == "" {
		return "/"
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, r := range segment {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest records a request observation on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveLogin records a login outcome on the default recorder.
func ObserveLogin(outcome string) {
	defaultRecorder.ObserveLogin(outcome)
}

// ObserveUpload records an upload outcome on the default recorder.
func ObserveUpload(outcome string) {
	defaultRecorder.ObserveUpload(outcome)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
