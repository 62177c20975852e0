// Package api serves the ingested articles over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pevans/galnetdb/config"
	"github.com/pevans/galnetdb/epoch"
	"github.com/pevans/galnetdb/store"
)

const (
	// DefaultLimit is the page size when no limit is given.
	DefaultLimit = 50
	// MaxLimit caps the page size.
	MaxLimit = 1000
)

// Server is the read-only HTTP API over the articles table.
type Server struct {
	store  *store.Store
	config *config.ConfigAPIServer
	logger *zap.Logger
}

// NewServer creates a server reading from st. The settings file at
// settingsPath backs GET /api/v1/meta/config.
func NewServer(st *store.Store, settingsPath string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  st,
		config: config.NewConfigAPIServer(settingsPath),
		logger: logger,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.loggerMiddleware())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	articles := router.Group("/api/v1/articles")
	articles.GET("", s.HandleListArticles)
	articles.GET("/:uid", s.HandleGetArticle)

	s.config.RegisterRoutes(router.Group("/api/v1/meta"))

	return router
}

// loggerMiddleware logs each request once it completes.
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// ListArticlesResponse represents the response for GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []store.Article `json:"articles"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleListArticles handles GET /api/v1/articles.
func (s *Server) HandleListArticles(c *gin.Context) {
	filter := store.Filter{Query: c.Query("q")}

	if from := c.Query("from"); from != "" {
		d, err := epoch.ParseDate(from)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid from parameter: must be YYYY-MM-DD"))
			return
		}
		filter.From = d
	}

	if to := c.Query("to"); to != "" {
		d, err := epoch.ParseDate(to)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid to parameter: must be YYYY-MM-DD"))
			return
		}
		filter.To = d
	}

	filter.Limit = DefaultLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid limit parameter"))
			return
		}
		filter.Limit = min(limit, MaxLimit)
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid offset parameter"))
			return
		}
		filter.Offset = offset
	}

	ctx := c.Request.Context()

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		s.internalError(c, err)
		return
	}

	articles, err := s.store.List(ctx, filter)
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{
		Articles: articles,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// HandleGetArticle handles GET /api/v1/articles/:uid.
func (s *Server) HandleGetArticle(c *gin.Context) {
	article, err := s.store.GetByUID(c.Request.Context(), c.Param("uid"))
	if errors.Is(err, store.ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "Article not found"))
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
}
