package settlement

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const ShutdownTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
}

// Run serves handler on port until ctx is cancelled. background runs on its
// own context, which is cancelled only once the HTTP server has shut down,
// so work queued by in-flight requests is still consumed.
func (s *Server) Run(ctx context.Context, port string, handler http.Handler, background func(context.Context) error) error {
	ln, err := net.Listen("tcp", "0.0.0.0:"+port)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln, handler, background, ShutdownTimeout)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, handler http.Handler, background func(context.Context) error, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var g errgroup.Group
	g.Go(func() error {
		return background(bgCtx)
	})
	g.Go(func() error {
		defer stopBackground()

		served := make(chan error, 1)
		go func() {
			served <- s.httpServer.Serve(ln)
		}()

		select {
		case err := <-served:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logrus.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
