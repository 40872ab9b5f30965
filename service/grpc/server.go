// Package grpc exposes the standard gRPC health service for an attached
// session, so supervisors can tell whether the build is resolved and the
// target still reachable.
package grpc

import (
	"context"
	"emupatch/pkg/session"
	"emupatch/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"net"
	"time"
)

// ServiceName is the health service name reported for the session.
const ServiceName = "emupatch"

type Server struct {
	service.ServerImpl
	grpcServer *grpc.Server
	health     *health.Server
	session    *session.Session
	interval   time.Duration
}

func NewServer(listener net.Listener, s *session.Session, interval time.Duration) *Server {
	srv := &Server{
		ServerImpl: service.ServerImpl{
			Listener: listener,
			StopChan: make(chan struct{}),
		},
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		session:    s,
		interval:   interval,
	}
	srv.SetupLogger("grpc")

	healthpb.RegisterHealthServer(srv.grpcServer, srv.health)
	reflection.Register(srv.grpcServer)
	return srv
}

// Run serves in the background and keeps the health status current.
func (s *Server) Run() error {
	s.report()
	go s.watch()
	go func() {
		if err := s.grpcServer.Serve(s.Listener); err != nil {
			s.Logger.Errorf("grpc serve: %v", err)
		}
	}()
	return nil
}

func (s *Server) watch() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.StopChan:
			return
		case <-ticker.C:
			s.report()
		}
	}
}

// report marks the service SERVING while the build's signature is still
// in place.
func (s *Server) report() {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.session.Verify(); err != nil {
		s.Logger.Debugf("health: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Check asks the health service directly, without a network round trip.
func (s *Server) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

func (s *Server) Stop() error {
	close(s.StopChan)
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	return nil
}
