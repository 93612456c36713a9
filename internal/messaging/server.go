// Package messaging publishes encounter updates over NATS, optionally from an
// embedded NATS server.
package messaging

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"go.uber.org/zap"
)

// Server is an in-process NATS server.
type Server struct {
	ns     *server.Server
	logger *zap.Logger

	startupTimeout time.Duration
	host           string
	port           int
}

// ServerOpt configures a Server.
type ServerOpt func(*Server)

// WithStartTimeout bounds how long Start waits for the server to accept clients.
func WithStartTimeout(d time.Duration) ServerOpt {
	return func(s *Server) { s.startupTimeout = d }
}

// WithHost sets the listen host.
func WithHost(host string) ServerOpt {
	return func(s *Server) { s.host = host }
}

// WithPort sets the listen port; -1 picks a random free port.
func WithPort(port int) ServerOpt {
	return func(s *Server) { s.port = port }
}

// NewServer configures, but does not start, an embedded NATS server.
func NewServer(logger *zap.Logger, opts ...ServerOpt) (*Server, error) {
	s := &Server{
		logger:         logger,
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
		port:           4222,
	}
	for _, opt := range opts {
		opt(s)
	}
	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: NewServer: %w", err)
	}
	s.ns = ns
	return s, nil
}

// Start runs the server and waits until it accepts connections.
func (s *Server) Start() error {
	go s.ns.Start()
	if !s.ns.ReadyForConnections(s.startupTimeout) {
		return fmt.Errorf("messaging: nats server not ready after %s", s.startupTimeout)
	}
	s.logger.Info("nats server listening", zap.String("url", s.ns.ClientURL()))
	return nil
}

// ClientURL is the URL clients use to reach the server.
func (s *Server) ClientURL() string {
	return s.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (s *Server) Shutdown() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}
