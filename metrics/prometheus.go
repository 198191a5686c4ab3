package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
	promotionLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_promotion_loads_total",
			Help: "Promotion list fetches by outcome.",
		},
		[]string{"outcome"},
	)
	promotionLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_promotion_load_duration_seconds",
			Help:    "Time spent fetching the promotion list.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cachedPromotions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cached_promotions",
			Help: "Number of promotions held in the in-memory cache.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(promotionLoadsTotal)
	prometheus.MustRegister(promotionLoadDuration)
	prometheus.MustRegister(cachedPromotions)
}

// RecordRequest records metrics for one served HTTP request.
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObservePromotionLoad records one promotion fetch.
func ObservePromotionLoad(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	promotionLoadsTotal.WithLabelValues(outcome).Inc()
	promotionLoadDuration.Observe(duration.Seconds())
}

func SetCachedPromotions(n int) {
	cachedPromotions.Set(float64(n))
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
