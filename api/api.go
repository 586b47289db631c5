// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/anchorage/api"

const (
	DefaultListenAddress = ":8480"
	// CallerHeader carries the address of the calling participant
	CallerHeader = "X-Anchorage-Caller"
)

// Config holds the API server configuration
type Config struct {
	ListenAddress string
	// HeightAdvancer enables the height advance endpoint when set. It is
	// meant for development networks where the node supplies heights.
	HeightAdvancer HeightAdvancer
}

// API is the JSON REST server for the governance engine
type API struct {
	config     Config
	logger     *slog.Logger
	engine     GovernanceEngine
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg Config,
	engine GovernanceEngine,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &API{
		config: cfg,
		logger: logger,
		engine: engine,
	}
}

// Handler returns the routed HTTP handler
func (a *API) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(a.logRequests)
	router.HandleFunc("/", a.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/height", a.handleHeight).Methods(http.MethodGet)
	if a.config.HeightAdvancer != nil {
		v1.HandleFunc("/height/advance", a.handleAdvanceHeight).
			Methods(http.MethodPost)
	}
	v1.HandleFunc("/events", a.handleEvents).Methods(http.MethodGet)

	v1.HandleFunc("/sidechains", a.handleListSidechains).
		Methods(http.MethodGet)
	v1.HandleFunc("/sidechains", a.handleAddSidechain).
		Methods(http.MethodPost)
	sidechain := v1.PathPrefix("/sidechains/{id}").Subrouter()
	sidechain.HandleFunc("", a.handleGetSidechain).Methods(http.MethodGet)
	sidechain.HandleFunc("/participants/{address}", a.handleIsParticipant).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/unmasked", a.handleUnmaskedParticipants).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/unmasked/{offset:[0-9]+}", a.handleUnmaskedParticipant).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/masked", a.handleMaskedParticipants).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/masked/{offset:[0-9]+}", a.handleMaskedParticipant).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/unmask", a.handleUnmask).Methods(http.MethodPost)
	sidechain.HandleFunc("/proposals", a.handleOpenProposals).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/proposals", a.handleProposeVote).
		Methods(http.MethodPost)
	sidechain.HandleFunc("/proposals/{target}", a.handleGetProposal).
		Methods(http.MethodGet)
	sidechain.HandleFunc("/proposals/{target}/votes", a.handleVote).
		Methods(http.MethodPost)
	sidechain.HandleFunc("/proposals/{target}/action", a.handleActionVotes).
		Methods(http.MethodPost)
	sidechain.HandleFunc("/proposals/{target}/voters", a.handleVoters).
		Methods(http.MethodGet)

	v1.HandleFunc("/pins", a.handleAddPin).Methods(http.MethodPost)
	v1.HandleFunc("/pins/{key}", a.handleGetPin).Methods(http.MethodGet)
	return router
}

// Start starts the HTTP server in a background goroutine
func (a *API) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}
	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// reported to the caller, then serves in a background goroutine
func (a *API) startServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs each request and wraps it in a server span. Spans are
// dropped unless the node configured a tracer provider.
func (a *API) logRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		spanName := r.Method
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				spanName += " " + tmpl
			}
		}
		ctx, span := tracer.Start(
			r.Context(),
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(
			attribute.Int("http.response.status_code", rec.status),
		)
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		a.logger.Debug(
			"request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
