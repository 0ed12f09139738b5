// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

// Package api serves the scraped hotwheels and designers read-only over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nulfrost/hotwheels-api/wiki"
)

// RequestIDHeader carries the id every request is logged with.
const RequestIDHeader = "X-Request-ID"

var (
	validLimits = []int{25, 50, 100}
	validSorts  = []string{"asc", "desc"}
)

// Server answers queries against a wiki.Repository.
type Server struct {
	repo    wiki.Repository
	version string
	log     logrus.FieldLogger
}

// NewServer returns a server reading from repo.
func NewServer(repo wiki.Repository, version string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Server{repo: repo, version: version, log: log}
}

// requestLogger tags every request with an id and logs it once answered.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		ctx.Header(RequestIDHeader, id)

		start := time.Now()

		ctx.Next()

		log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     ctx.Request.Method,
			"path":       ctx.Request.URL.Path,
			"status":     ctx.Writer.Status(),
			"elapsed":    time.Since(start).String(),
		}).Info("Request served")
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/", s.banner)
	r.GET("/healthcheck", s.healthcheck)
	r.GET("/hotwheels", s.listHotwheels)
	r.GET("/hotwheels/:id", s.getHotwheel)
	r.GET("/designers", s.listDesigners)
	r.GET("/designers/:id", s.getDesigner)

	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		s.log.Infof("Listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) banner(ctx *gin.Context) {
	ctx.String(http.StatusOK, strings.Join([]string{
		"Hot Wheels API " + s.version,
		"",
		"GET /hotwheels?limit=25|50|100&page=N&sort=asc|desc&year=&series=&designer=",
		"GET /hotwheels/:id",
		"GET /designers?limit=25|50|100&page=N&sort=asc|desc",
		"GET /designers/:id",
		"GET /healthcheck",
		"",
	}, "\n"))
}

func (s *Server) healthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "OK", "status": http.StatusOK})
}

// page is the validated pagination of a list request.
type page struct {
	Limit int
	Page  int
	Sort  string
}

func (p page) options() wiki.ListOptions {
	return wiki.ListOptions{
		Limit:  p.Limit,
		Offset: (p.Page - 1) * p.Limit,
		Desc:   p.Sort == "desc",
	}
}

func invalidQuery(ctx *gin.Context) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"status": http.StatusBadRequest,
		"title":  "Error: Invalid query parameter value",
		"detail": "Valid query parameters and values - limit: 25, 50, 100, sort: asc, desc",
	})
}

func notFound(ctx *gin.Context) {
	ctx.JSON(http.StatusNotFound, gin.H{
		"status": http.StatusNotFound,
		"title":  "Error: Not found",
	})
}

func (s *Server) internalError(ctx *gin.Context, err error) {
	s.log.Errorf("Query failed: %v", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"status": http.StatusInternalServerError,
		"title":  "Error: Internal server error",
	})
}

// parsePage validates limit, page and sort. It answers 400 itself. A page
// whose offset would not fit in an int is invalid.
func parsePage(ctx *gin.Context) (page, bool) {
	p := page{Limit: validLimits[0], Page: 1, Sort: validSorts[0]}

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !slices.Contains(validLimits, n) {
			invalidQuery(ctx)

			return p, false
		}

		p.Limit = n
	}

	if v := ctx.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > math.MaxInt/p.Limit {
			invalidQuery(ctx)

			return p, false
		}

		p.Page = n
	}

	if v := strings.ToLower(ctx.Query("sort")); v != "" {
		if !slices.Contains(validSorts, v) {
			invalidQuery(ctx)

			return p, false
		}

		p.Sort = v
	}

	return p, true
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		notFound(ctx)

		return 0, false
	}

	return id, true
}

func (s *Server) listHotwheels(ctx *gin.Context) {
	p, ok := parsePage(ctx)
	if !ok {
		return
	}

	opts := p.options()
	opts.Year = ctx.Query("year")
	opts.Series = ctx.Query("series")
	opts.Designer = ctx.Query("designer")

	hotwheels, err := s.repo.ListHotwheels(ctx.Request.Context(), opts)
	if err != nil {
		s.internalError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": hotwheels, "limit": p.Limit, "page": p.Page, "sort": p.Sort})
}

func (s *Server) getHotwheel(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	h, err := s.repo.GetHotwheel(ctx.Request.Context(), id)
	if errors.Is(err, wiki.ErrNotFound) {
		notFound(ctx)

		return
	}

	if err != nil {
		s.internalError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": h})
}

func (s *Server) listDesigners(ctx *gin.Context) {
	p, ok := parsePage(ctx)
	if !ok {
		return
	}

	designers, err := s.repo.ListDesigners(ctx.Request.Context(), p.options())
	if err != nil {
		s.internalError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": designers, "limit": p.Limit, "page": p.Page, "sort": p.Sort})
}

func (s *Server) getDesigner(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	d, err := s.repo.GetDesigner(ctx.Request.Context(), id)
	if errors.Is(err, wiki.ErrNotFound) {
		notFound(ctx)

		return
	}

	if err != nil {
		s.internalError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": d})
}
