// Package main runs a small demo server that throws on purpose and serves
// back the captured error records.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashleyglee/exceptional/internal/config"
	"github.com/ashleyglee/exceptional/pkg/exceptional"
	"github.com/ashleyglee/exceptional/pkg/exchttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "app", cfg.Capture.ApplicationName, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := &recentStore{limit: 50}

	settings := cfg.Settings()
	settings.IsWrapper = func(err error) bool {
		// fmt.Errorf "context: %w" wrappers group better by their root cause.
		cause := errors.Unwrap(err)
		return cause != nil && strings.HasSuffix(err.Error(), ": "+cause.Error())
	}

	capture := exchttp.Capture(exchttp.CaptureOptions{
		Settings: settings,
		Filters:  cfg.FilterRegistry(),
		Store:    store,
	})

	r := chi.NewRouter()
	r.Use(capture)

	// Routes that throw, for demonstrating capture.
	r.Get("/throw", func(w http.ResponseWriter, r *http.Request) {
		panic(fmt.Errorf("order lookup failed: %w", errors.New("connection refused")))
	})
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		// Repeated ?tag= parameters land in the record as distinct pairs.
		panic("search index unavailable")
	})
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		panic("login backend unreachable")
	})

	// Recently captured records, in the cross-boundary detailed view.
	r.Get("/errors", func(w http.ResponseWriter, r *http.Request) {
		views, err := store.DetailedViews()
		if err != nil {
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(views)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// recentStore keeps the last few captured records in memory for the demo.
// It is not a persistence layer; real deployments implement ErrorStore
// against their own backing.
type recentStore struct {
	mu     sync.Mutex
	limit  int
	recent []*exceptional.Error
}

var _ exceptional.ErrorStore = (*recentStore)(nil)

func (s *recentStore) Log(_ context.Context, e *exceptional.Error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, e)
	if len(s.recent) > s.limit {
		s.recent = s.recent[len(s.recent)-s.limit:]
	}
	return nil
}

// DetailedViews encodes the stored records newest-first.
func (s *recentStore) DetailedViews() ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, 0, len(s.recent))
	for i := len(s.recent) - 1; i >= 0; i-- {
		b, err := exceptional.EncodeDetailed(s.recent[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
