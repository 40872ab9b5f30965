package http

import (
	"context"
	"emupatch/pkg/session"
	"emupatch/service"
	"net"
	"net/http"
	"os"
	"sync"
	"time"
)

type Server struct {
	service.ServerImpl
	httpServer *http.Server
	pool       sync.Pool
}

func NewServer(listener net.Listener, s *session.Session) *Server {
	impl := service.ServerImpl{
		Listener: listener,
		StopChan: make(chan struct{}),
	}
	impl.SetupLogger("http")

	srv := &Server{
		ServerImpl: impl,
		pool: sync.Pool{
			New: func() interface{} {
				return newProcessor(s)
			},
		},
	}

	srv.httpServer = &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

func (s *Server) Run() error {
	go func() {
		if err := s.httpServer.Serve(s.Listener); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString(err.Error() + "\n")
		}
	}()

	return nil
}

func (s *Server) Stop() error {
	close(s.StopChan)
	return s.httpServer.Shutdown(context.Background())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(s.Logger, w, r)
	p := s.pool.Get().(*processor)
	defer s.pool.Put(p)

	ctx.chain = httpHandlerChain(p.worker)
	ctx.chain.exec(ctx)
}
