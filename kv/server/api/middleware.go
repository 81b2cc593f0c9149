package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pingcap/log"
	"github.com/unrolled/render"
	"github.com/urfave/negroni"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiter *rate.Limiter
	rd      *render.Render
}

func newRateLimiter(limit float64, burst int, rd *render.Render) *rateLimiter {
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		rd:      rd,
	}
}

func (l *rateLimiter) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if !l.limiter.Allow() {
		rejectedRequestCounter.Inc()
		l.rd.JSON(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	next(w, r)
}

type accessLogger struct{}

func newAccessLogger() *accessLogger {
	return &accessLogger{}
}

func (l *accessLogger) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(w, r)

	status := http.StatusOK
	if res, ok := w.(negroni.ResponseWriter); ok && res.Status() != 0 {
		status = res.Status()
	}
	requestDuration.WithLabelValues(r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	log.Debug("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("cost", time.Since(start)))
}
