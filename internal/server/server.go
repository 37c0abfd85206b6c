package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"vidnotes/internal/config"
	"vidnotes/internal/logging"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// uploadOverhead is the multipart framing allowance on top of the file limit.
const uploadOverhead = 1 << 20

// Server is the HTTP presenter.
type Server struct {
	cfg       *config.Config
	runner    *pipeline.Runner
	store     *session.Store
	logger    *slog.Logger
	templates *template.Template
	handler   http.Handler
	status    func(ctx context.Context) StatusResponse
}

// New builds a Server. store may be nil, in which case sessions are not
// retrievable after the upload response.
func New(cfg *config.Config, runner *pipeline.Runner, store *session.Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("server requires config and pipeline runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	tmpl, err := template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "server"),
		templates: tmpl,
	}
	s.status = s.buildStatus
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run acquires the instance lock, listens on the configured bind address, and
// serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lock := flock.New(s.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another vidnotes server is already using %s", s.cfg.Paths.StateDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release server lock",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file manually"),
				logging.String(logging.FieldImpact, "next start may report a running instance"),
			)
		}
	}()

	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepLoop(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	s.logger.Info("server listening",
		logging.String(logging.FieldEventType, "server_start"),
		logging.String("address", listener.Addr().String()),
		logging.String("engine", s.runner.Engine()),
		logging.String("strategy", s.runner.Strategy()),
		logging.Bool("auth_required", strings.TrimSpace(s.cfg.Server.APIToken) != ""),
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped", logging.String(logging.FieldEventType, "server_stop"))
	return nil
}

func (s *Server) sweepLoop(ctx context.Context) {
	interval := s.cfg.CleanupInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Sweep(ctx, s.cfg, s.store, s.logger)
		}
	}
}
