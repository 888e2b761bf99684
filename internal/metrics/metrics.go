package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and conversions.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	conversionsTotal = make(map[convKey]int64)
	downloadsTotal   = make(map[string]int64)
	deletesTotal     int64
	deleteWarnings   int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type convKey struct {
	Target string
	Status string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordConversion counts a finished pitch conversion by target voice
// and terminal status.
func RecordConversion(target, status string) {
	mu.Lock()
	defer mu.Unlock()
	conversionsTotal[convKey{Target: target, Status: status}]++
}

// RecordDownload counts a speed-adjusted download render.
func RecordDownload(success bool) {
	mu.Lock()
	defer mu.Unlock()
	s := "false"
	if success {
		s = "true"
	}
	downloadsTotal[s]++
}

// RecordDelete counts a job deletion and any file-removal warnings it
// produced.
func RecordDelete(warnings int) {
	mu.Lock()
	defer mu.Unlock()
	deletesTotal++
	deleteWarnings += int64(warnings)
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP audioverter_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE audioverter_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "audioverter_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP audioverter_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE audioverter_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP audioverter_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE audioverter_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "audioverter_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "audioverter_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	b.WriteString("# HELP audioverter_conversions_total Total pitch conversions by target voice and terminal status\n")
	b.WriteString("# TYPE audioverter_conversions_total counter\n")

	var convKeys []convKey
	for k := range conversionsTotal {
		convKeys = append(convKeys, k)
	}
	sort.Slice(convKeys, func(i, j int) bool {
		if convKeys[i].Target != convKeys[j].Target {
			return convKeys[i].Target < convKeys[j].Target
		}
		return convKeys[i].Status < convKeys[j].Status
	})

	for _, k := range convKeys {
		v := conversionsTotal[k]
		fmt.Fprintf(&b, "audioverter_conversions_total{target=\"%s\",status=\"%s\"} %d\n",
			k.Target, k.Status, v)
	}

	b.WriteString("# HELP audioverter_downloads_total Total speed-adjusted download renders\n")
	b.WriteString("# TYPE audioverter_downloads_total counter\n")

	var dlKeys []string
	for k := range downloadsTotal {
		dlKeys = append(dlKeys, k)
	}
	sort.Strings(dlKeys)
	for _, k := range dlKeys {
		fmt.Fprintf(&b, "audioverter_downloads_total{success=\"%s\"} %d\n", k, downloadsTotal[k])
	}

	b.WriteString("# HELP audioverter_job_deletes_total Total job deletions\n")
	b.WriteString("# TYPE audioverter_job_deletes_total counter\n")
	fmt.Fprintf(&b, "audioverter_job_deletes_total %d\n", deletesTotal)

	b.WriteString("# HELP audioverter_job_delete_warnings_total Total best-effort file removal warnings during deletion\n")
	b.WriteString("# TYPE audioverter_job_delete_warnings_total counter\n")
	fmt.Fprintf(&b, "audioverter_job_delete_warnings_total %d\n", deleteWarnings)

	return b.String()
}
