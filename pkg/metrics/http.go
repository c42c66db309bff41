package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "HTTP requests processed, partitioned by status code, method and route.",
	Type:        "counter_vec",
	Args:        []string{"code", "method", "route"},
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"code", "method", "route"},
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "req_sz_bytes",
	Description: "HTTP request sizes in bytes.",
	Type:        "summary_vec",
	Args:        []string{"code", "method", "route"},
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        []string{"code", "method", "route"},
}

type Logger interface {
	Errorf(format string, v ...interface{})
}

type HTTPOptions struct {
	Subsystem  string
	Registerer prometheus.Registerer
	// SkipPaths are route templates excluded from request metrics.
	SkipPaths []string
	Logger    Logger
}

// HTTP records request metrics for a gin engine. Routes are labelled by
// their template so path parameters do not create new series.
type HTTP struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec
	skipPaths    map[string]struct{}
	logger       Logger
}

func NewHTTP(opts HTTPOptions) *HTTP {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	subsystem := opts.Subsystem
	if subsystem == "" {
		subsystem = "http"
	}
	h := &HTTP{
		reqCnt:    registerIn(reg, reqCnt, subsystem).(*prometheus.CounterVec),
		reqDur:    registerIn(reg, reqDur, subsystem).(*prometheus.HistogramVec),
		reqSz:     registerIn(reg, reqSz, subsystem).(*prometheus.SummaryVec),
		resSz:     registerIn(reg, resSz, subsystem).(*prometheus.SummaryVec),
		skipPaths: make(map[string]struct{}, len(opts.SkipPaths)),
		logger:    opts.Logger,
	}
	for _, path := range opts.SkipPaths {
		h.skipPaths[path] = struct{}{}
	}
	return h
}

// Middleware observes every request that is not on a skipped route.
func (h *HTTP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := h.skipPaths[c.FullPath()]; skip {
			c.Next()
			return
		}

		start := time.Now()
		size := computeApproximateRequestSize(c.Request)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		code := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		h.reqCnt.WithLabelValues(code, method, route).Inc()
		h.reqDur.WithLabelValues(code, method, route).Observe(MillisecondsSince(start))
		h.reqSz.WithLabelValues(code, method, route).Observe(float64(size))
		h.resSz.WithLabelValues(code, method, route).Observe(float64(c.Writer.Size()))
	}
}

// Serve exposes /metrics on a dedicated listener so scrapes stay out of the
// API access log.
func (h *HTTP) Serve(addr string) {
	router := gin.New()
	router.GET("/metrics", prometheusHandler())
	go func() {
		if err := router.Run(addr); err != nil && h.logger != nil {
			h.logger.Errorf("metrics listener on %s stopped: %v", addr, err)
		}
	}()
}
