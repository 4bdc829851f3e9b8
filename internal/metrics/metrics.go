// Package metrics exposes Prometheus collectors for crawls, page fetches and
// the web front end.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/linkharvest/internal/crawler"
	"github.com/nao1215/linkharvest/internal/model"
)

const namespace = "linkharvest"

// Collector holds every metric linkharvest exports. Each Collector owns its
// registry, so several can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	pagesFetched    prometheus.Counter
	pagesFailed     *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	linksDiscovered prometheus.Counter
	newLinks        prometheus.Counter
	crawlsTotal     *prometheus.CounterVec
	crawlDuration   prometheus.Histogram
	crawlsInFlight  prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a Collector with the Go runtime and process collectors
// registered alongside the linkharvest metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		pagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of pages fetched successfully.",
		}),
		pagesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Total number of page fetches that failed and were skipped.",
		}, []string{"reason"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of successful page fetches, including the pause before each request.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 2.5, 3, 5, 10, 15},
		}),
		linksDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_discovered_total",
			Help:      "Total number of same-domain links discovered.",
		}),
		newLinks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_links_total",
			Help:      "Total number of discovered links that were not in the link store.",
		}),
		crawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Total number of crawls.",
		}, []string{"status"}),
		crawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of crawls.",
			Buckets:   []float64{1, 5, 10, 15, 30, 60, 120, 300},
		}),
		crawlsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crawls_in_flight",
			Help:      "Number of crawls currently running.",
		}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// PageFetched implements crawler.Observer.
func (c *Collector) PageFetched(_ string, elapsed time.Duration) {
	c.pagesFetched.Inc()
	c.fetchDuration.Observe(elapsed.Seconds())
}

// PageFailed implements crawler.Observer.
func (c *Collector) PageFailed(_ string, err error) {
	c.pagesFailed.WithLabelValues(failureReason(err)).Inc()
}

// LinkDiscovered implements crawler.Observer.
func (c *Collector) LinkDiscovered(string) {
	c.linksDiscovered.Inc()
}

// TrackCrawl marks a crawl as running. The returned function marks it done.
func (c *Collector) TrackCrawl() func() {
	c.crawlsInFlight.Inc()
	return c.crawlsInFlight.Dec
}

// ObserveCrawl records the outcome of a finished crawl.
func (c *Collector) ObserveCrawl(result *model.CrawlResult) {
	status := "success"
	if !result.Succeeded() {
		status = "failure"
	}
	c.crawlsTotal.WithLabelValues(status).Inc()
	c.newLinks.Add(float64(len(result.NewLinks)))
	if d := result.Duration(); d > 0 {
		c.crawlDuration.Observe(d.Seconds())
	}
}

// Middleware records the count and duration of HTTP requests.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := NewResponseWriter(w)
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		status := strconv.Itoa(rw.StatusCode())
		c.httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration.Seconds())
		c.httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
	})
}

// failureReason classifies a fetch error for the reason label.
func failureReason(err error) string {
	var fetchErr *crawler.FetchError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.StatusCode != 0:
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

// ResponseWriter records the status code written by a handler.
type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

// NewResponseWriter wraps w. The status defaults to 200.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader records code and forwards it.
func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StatusCode returns the recorded status.
func (rw *ResponseWriter) StatusCode() int {
	return rw.statusCode
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

var _ crawler.Observer = (*Collector)(nil)
