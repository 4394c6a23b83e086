package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qepting91/plandit-scraper/internal/storage"
)

const defaultPageSize = 50

// Server is the read-only HTTP facade over the store. It never mutates;
// scraping stays the CLI's job.
type Server struct {
	store storage.Store
	http  *http.Server
}

func NewServer(store storage.Store, port string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{store: store}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/posts", s.listPosts)
		v1.GET("/comments", s.listComments)
		v1.GET("/jobs", s.listJobs)
	}

	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	slog.Info("api listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) listPosts(c *gin.Context) {
	q := storage.PostQuery{
		Kind:     c.Query("kind"),
		Author:   c.Query("author"),
		MinScore: intQuery(c, "min_score", 0),
		Limit:    intQuery(c, "limit", defaultPageSize),
		Offset:   intQuery(c, "offset", 0),
	}

	posts, err := s.store.Posts(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(posts), "posts": posts})
}

func (s *Server) listComments(c *gin.Context) {
	q := storage.CommentQuery{
		PostPermalink: c.Query("post"),
		Limit:         intQuery(c, "limit", defaultPageSize),
	}

	comments, err := s.store.Comments(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(comments), "comments": comments})
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.store.Jobs(c.Request.Context(), intQuery(c, "limit", defaultPageSize))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(jobs), "jobs": jobs})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
