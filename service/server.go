package service

import (
	"emupatch/pkg/logflags"
	"net"
)

// Server represents a server for a remote client
// to connect to.
type Server interface {
	Run() error
	Stop() error
}

type ServerImpl struct {
	Logger   logflags.Logger
	Listener net.Listener
	StopChan chan struct{}
}

// SetupLogger picks the component logger for a server kind. logflags.Setup
// must have run before.
func (si *ServerImpl) SetupLogger(kind string) {
	switch kind {
	case "http":
		fallthrough
	default:
		si.Logger = logflags.HTTPLogger().With("server", kind)
	}
}

func (si *ServerImpl) Addr() string {
	if si.Listener == nil {
		return ""
	}
	return si.Listener.Addr().String()
}
