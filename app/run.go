package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/cityguard/api/observers"
	"github.com/kilianp07/cityguard/api/tasks"
)

// Handler returns the HTTP API of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	th := tasks.NewHandler(s, s, s.cfg.API.Token)
	mux.Handle("/api/tasks", th)
	mux.Handle("/api/tasks/", th)
	mux.Handle("/api/observers", observers.NewHandler(s, s.cfg.API.Token))
	return mux
}

// Run serves the HTTP API until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving api on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
