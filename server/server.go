// Copyright 2025 Poiesic Systems
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

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/chunkstore"
	"github.com/poiesic/voxdex/retrieval"
)

const shutdownTimeout = 10 * time.Second

// Searcher runs retrieval requests.
type Searcher interface {
	Search(ctx context.Context, req retrieval.Request) (*retrieval.Response, error)
}

// StatusSource reports the loaded index.
type StatusSource interface {
	Status() chunkstore.Status
}

// Server serves the HTTP routes.
type Server struct {
	searcher    Searcher
	classifier  ai.Classifier
	synthesizer ai.Synthesizer
	status      StatusSource
	validate    *validator.Validate
	engine      *gin.Engine
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClassifier enables /classify and question-type detection in
// /synthesize.
func WithClassifier(c ai.Classifier) Option {
	return func(s *Server) {
		s.classifier = c
	}
}

// WithSynthesizer enables /synthesize.
func WithSynthesizer(syn ai.Synthesizer) Option {
	return func(s *Server) {
		s.synthesizer = syn
	}
}

// WithStatus enables index details in /healthz.
func WithStatus(src StatusSource) Option {
	return func(s *Server) {
		s.status = src
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New creates a server over searcher.
func New(searcher Searcher, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	s := &Server{
		searcher: searcher,
		validate: validate,
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(s.requestLogger(), gin.CustomRecovery(s.recovered))
	engine.POST("/search", s.handleSearch)
	engine.POST("/classify", s.handleClassify)
	engine.POST("/synthesize", s.handleSynthesize)
	engine.GET("/healthz", s.handleHealth)
	engine.NoRoute(func(c *gin.Context) {
		writeJSON(c, http.StatusNotFound, ErrorBody{Error: ErrorDetail{Code: "not_found", Message: "no route " + c.Request.URL.Path}})
	})
	s.engine = engine
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

func (s *Server) recovered(c *gin.Context, r any) {
	s.logger.Error("panic serving request", "path", c.Request.URL.Path, "panic", r)
	s.fail(c, fmt.Errorf("unexpected failure"))
}
