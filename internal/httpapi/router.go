// Package httpapi serves the search API over gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/repertoire/internal/logger"
	"github.com/mesh-intelligence/repertoire/internal/query"
	"github.com/mesh-intelligence/repertoire/internal/snapshot"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

type RouterConfig struct {
	// Store takes the writes. Nil makes every write answer 503.
	Store  types.GraphStore
	// Engine answers reads. Nil builds one from Store and Cache.
	Engine *query.Engine
	// Cache backs /api/repertoire and /api/snapshot/reload.
	Cache *snapshot.Cache
	Log   *logger.Logger

	AllowOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.AllowOrigins))

	if cfg.Engine == nil {
		var snaps query.Snapshots
		if cfg.Cache != nil {
			snaps = cfg.Cache
		}
		cfg.Engine = query.New(cfg.Store, snaps, cfg.Log)
	}

	h := &Handler{store: cfg.Store, engine: cfg.Engine, cache: cfg.Cache, log: cfg.Log}

	r.GET("/healthcheck", h.HealthCheck)

	api := r.Group("/api")
	{
		// Reads
		api.GET("/search", h.Search)
		api.GET("/pieces", h.ListPieces)
		api.GET("/repertoire", h.Document)

		// Writes
		api.POST("/people", h.CreatePerson)
		api.POST("/pieces", h.CreatePiece)
		api.POST("/knows", h.LinkKnows)
		api.POST("/repertoire", h.AddRepertoire)
		api.DELETE("/people/:id", h.DeletePerson)
		api.DELETE("/pieces/:id", h.DeletePiece)

		// Snapshot
		api.POST("/snapshot/reload", h.ReloadSnapshot)
	}
	return r
}

// Server runs the router until its context ends.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
	}
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
