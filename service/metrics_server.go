package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type MetricsServer struct {
	httpServer
}

// Handler serves the default prometheus registry on /metrics.
func (m *MetricsServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.Handler())
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Listen binds addr without serving yet.
func (m *MetricsServer) Listen(addr string) error {
	return m.listen(addr, m.Handler())
}

// Serve blocks until Shutdown.
func (m *MetricsServer) Serve() error {
	return m.serve()
}
