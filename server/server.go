/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Authors:
 *   Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package server provides a REST API over a waveform bank.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wtsi-hgi/wavebank/bank"
)

// Error is the custom error type for the server package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrBadQuery       = Error("bad query")
	ErrAlreadyStarted = Error("server already started")

	EndPointREST         = "/rest/v1"
	EndPointIndex        = EndPointREST + indexPath
	EndPointAvailability = EndPointREST + availabilityPath
	EndPointGaps         = EndPointREST + gapsPath
	EndPointUptime       = EndPointREST + uptimePath
	EndPointWaveforms    = EndPointREST + waveformsPath
	EndPointBulk         = EndPointREST + bulkPath
	EndPointUpdate       = EndPointREST + updatePath
	EndPointVersion      = EndPointREST + versionPath
	EndPointMetrics      = "/metrics"

	indexPath        = "/index"
	availabilityPath = "/availability"
	gapsPath         = "/gaps"
	uptimePath       = "/uptime"
	waveformsPath    = "/waveforms"
	bulkPath         = "/bulk"
	updatePath       = "/update"
	versionPath      = "/version"

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 20 * time.Second
)

// Server serves a bank's index and waveforms over HTTP.
type Server struct {
	bank     *bank.Bank
	router   *gin.Engine
	registry *prometheus.Registry
	logger   log15.Logger

	mu  sync.Mutex
	srv *http.Server
}

// New returns a Server for the given bank, logging requests to logger.
func New(b *bank.Bank, logger log15.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		bank:     b,
		router:   gin.New(),
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	s.registry.MustRegister(b.PrometheusCollectors()...)

	s.router.Use(gin.Recovery(), s.logRequest)
	s.addRoutes()

	return s
}

func (s *Server) addRoutes() {
	rest := s.router.Group(EndPointREST)

	rest.GET(indexPath, s.getIndex)
	rest.GET(availabilityPath, s.getAvailability)
	rest.GET(gapsPath, s.getGaps)
	rest.GET(uptimePath, s.getUptime)
	rest.GET(waveformsPath, s.getWaveforms)
	rest.POST(bulkPath, s.postBulk)
	rest.POST(updatePath, s.postUpdate)
	rest.GET(versionPath, s.getVersion)

	s.router.GET(EndPointMetrics, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

func (s *Server) logRequest(c *gin.Context) {
	start := time.Now()

	c.Next()

	s.logger.Debug("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"took", time.Since(start),
	)

	for _, err := range c.Errors {
		s.logger.Warn("request failed", "path", c.Request.URL.Path, "err", err.Err)
	}
}

// Router returns the gin router, for testing or adding routes.
func (s *Server) Router() *gin.Engine { return s.router }

// Start listens on addr and serves until Stop is called. It blocks, returning
// nil after a Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ln)
}

// Serve serves on the given listener until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()

	if s.srv != nil {
		s.mu.Unlock()
		ln.Close()

		return ErrAlreadyStarted
	}

	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: readHeaderTimeout}
	s.srv = srv

	s.mu.Unlock()

	s.logger.Info("serving", "addr", ln.Addr().String(), "bank", s.bank.BasePath())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop gracefully stops a started server.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}
