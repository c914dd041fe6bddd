package service

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	MetricsHost = "0.0.0.0"
	MetricsPort = 7300
)

// Config holds the listen addresses of the service.
type Config struct {
	HealthzHost string
	HealthzPort int
	MetricsHost string
	MetricsPort int
}

// DefaultConfig listens on all interfaces on the default ports.
func DefaultConfig() Config {
	return Config{
		HealthzHost: HealthzHost,
		HealthzPort: HealthzPort,
		MetricsHost: MetricsHost,
		MetricsPort: MetricsPort,
	}
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	log log.Logger
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	logger = logger.New("component", "service")
	return &Service{
		Healthz: &HealthzServer{log: logger},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     logger,
	}
}

// server is what Start needs from each of the service's servers.
type server interface {
	Listen(addr string) error
	Serve() error
}

// Start binds both servers before returning and serves them in the background.
// A failed bind is logged and recorded, and does not stop the other server.
func (s *Service) Start() {
	s.log.Info("service starting")

	s.start("healthz", s.Healthz, net.JoinHostPort(s.cfg.HealthzHost, strconv.Itoa(s.cfg.HealthzPort)))
	s.start("metrics", s.Metrics, net.JoinHostPort(s.cfg.MetricsHost, strconv.Itoa(s.cfg.MetricsPort)))

	s.log.Info("service started")
}

func (s *Service) start(name string, srv server, addr string) {
	s.log.Info("starting "+name+" server", "addr", addr)
	if err := srv.Listen(addr); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting "+name+" server", "err", err)
			metrics.RecordErrorDetails(name, err)
		}
		return
	}

	go func() {
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error serving "+name+" server", "err", err)
			metrics.RecordErrorDetails(name, err)
		}
	}()
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
