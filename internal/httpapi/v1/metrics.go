package v1

import (
    "net/http"
    "strconv"
    "time"

    chimw "github.com/go-chi/chi/v5/middleware"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    httpRequestsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "voucherdesk",
            Name:      "http_requests_total",
            Help:      "Total number of HTTP requests",
        },
        []string{"method", "status"},
    )
    httpRequestDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "voucherdesk",
            Name:      "http_request_duration_seconds",
            Help:      "Duration of HTTP requests in seconds",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"method", "status"},
    )
    journalSubmissions = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "voucherdesk",
            Name:      "journal_submissions_total",
            Help:      "Journal form submissions by outcome",
        },
        []string{"outcome"},
    )
    vouchersCreated = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "voucherdesk",
            Name:      "vouchers_created_total",
            Help:      "Vouchers persisted, excluding idempotent replays",
        },
        []string{"voucher_type"},
    )
    openSessions = promauto.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "voucherdesk",
            Name:      "open_sessions",
            Help:      "Journal forms currently held by the desk",
        },
    )
)

func metricsHandler() http.Handler {
    return promhttp.Handler()
}

func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        status := strconv.Itoa(ww.Status())
        httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
        httpRequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
    })
}
