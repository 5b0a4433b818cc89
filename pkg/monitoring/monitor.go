package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 播放会话相关指标
	ActiveWatchSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_sessions_active",
			Help: "Number of active playback tracking sessions",
		},
	)

	PlaybackEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_events_total",
			Help: "Total number of playback events received over websocket",
		},
		[]string{"type"},
	)

	ProgressSaveCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_saves_total",
			Help: "Total number of progress save attempts by backend and result",
		},
		[]string{"backend", "result"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ActiveWatchSessions)
	prometheus.MustRegister(PlaybackEventCounter)
	prometheus.MustRegister(ProgressSaveCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
