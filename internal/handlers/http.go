package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer serves handler until the context is cancelled, then shuts down gracefully
type HTTPServer struct {
	serverAddr string
	handler    http.Handler
	listening  chan net.Addr

	log interfaces.ILogger
}

func NewHTTPServer(serverAddr string, handler http.Handler, log interfaces.ILogger) *HTTPServer {
	return &HTTPServer{
		serverAddr: serverAddr,
		handler:    handler,
		listening:  make(chan net.Addr, 1),
		log:        log,
	}
}

// Listening receives the bound address once the server accepts connections
func (p *HTTPServer) Listening() <-chan net.Addr {
	return p.listening
}

func (p *HTTPServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", p.serverAddr)
	if err != nil {
		return fmt.Errorf("listener error %s %w", p.serverAddr, err)
	}

	server := &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	p.log.Infof("http server is listening: %s", listener.Addr())
	p.listening <- listener.Addr()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			return err
		}
		p.log.Infof("http server closed: %s", listener.Addr())
		return ctx.Err()
	case err = <-serverErr:
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
