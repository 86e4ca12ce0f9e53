package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/eval"
	"kg-extractor/backend/internal/export"
	"kg-extractor/backend/internal/graph"
	"kg-extractor/backend/internal/pipeline"
	"kg-extractor/backend/internal/rdf"
	"kg-extractor/backend/internal/triplet"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

type extractor interface {
	Run(ctx context.Context, text string, opts pipeline.Options) (*pipeline.Result, error)
}

type runStore interface {
	FetchRun(ctx context.Context, runID string) (*rdf.Graph, error)
	DeleteRun(ctx context.Context, runID string) (int, error)
}

// handlers serves the HTTP API. store is nil when persistence is disabled.
type handlers struct {
	extractor  extractor
	evaluators func(mode string) (*eval.Evaluator, error)
	store      runStore
	ns         rdf.Namespaces
	log        *zap.Logger
}

func newRouter(h *handlers, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(h.log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/parse", h.parse)
		api.POST("/extract", h.extract)
		api.POST("/evaluate", h.evaluate)
		api.GET("/graph/:run_id", h.fetchGraph)
		api.DELETE("/graph/:run_id", h.deleteGraph)
	}
	return router
}

// parse runs only the tag-stream parser
func (h *handlers) parse(c *gin.Context) {
	var req struct {
		Stream string `json:"stream" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"triplets": triplet.Parse(req.Stream)})
}

type extractRequest struct {
	Text      string `json:"text" binding:"required"`
	GraphName string `json:"graph_name"`
	SkipCoref bool   `json:"skip_coref"`
	Render    bool   `json:"render"`
	Persist   bool   `json:"persist"`
}

func (h *handlers) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.extractor.Run(c.Request.Context(), req.Text, pipeline.Options{
		SkipCoref: req.SkipCoref,
		Render:    req.Render,
		GraphName: req.GraphName,
		Persist:   req.Persist,
	})
	if err != nil && res == nil {
		h.runError(c, err)
		return
	}

	body := gin.H{
		"run_id":        res.RunID,
		"resolved_text": res.ResolvedText,
		"triplets":      res.Triplets,
		"resolutions":   res.Resolutions,
		"rdf_triples":   res.RDFTriples,
		"enriched":      res.Enriched,
		"graph":         export.Statements(res.Graph, h.ns),
		"image_path":    res.ImagePath,
		"duration_ms":   res.Duration.Milliseconds(),
	}
	if err != nil {
		// Extraction finished; only export or persistence failed
		logger.ForRun(res.RunID).Warn("Export failed", zap.Error(err))
		body["export_error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

type evaluateRequest struct {
	Text       string            `json:"text"`
	Predicted  []triplet.Triplet `json:"predicted"`
	Reference  []triplet.Triplet `json:"reference" binding:"required"`
	Comparator string            `json:"comparator"`
}

// evaluate scores predicted triplets, or the triplets extracted from text, against
// a reference set
func (h *handlers) evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evaluator, err := h.evaluators(req.Comparator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	predicted := req.Predicted
	if len(predicted) == 0 && req.Text != "" {
		res, err := h.extractor.Run(c.Request.Context(), req.Text, pipeline.Options{})
		if err != nil {
			h.runError(c, err)
			return
		}
		predicted = res.Triplets
	}

	metrics, err := evaluator.Evaluate(c.Request.Context(), predicted, req.Reference)
	if err != nil {
		h.log.Error("Evaluation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *handlers) fetchGraph(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Graph persistence is disabled"})
		return
	}

	runID := c.Param("run_id")
	g, err := h.store.FetchRun(c.Request.Context(), runID)
	if err != nil {
		var notFound graph.ErrRunNotFound
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		h.log.Error("Failed to fetch graph", zap.String("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch graph"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"graph":  export.Statements(g, h.ns),
	})
}

// deleteGraph drops a persisted run
func (h *handlers) deleteGraph(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Graph persistence is disabled"})
		return
	}

	runID := c.Param("run_id")
	deleted, err := h.store.DeleteRun(c.Request.Context(), runID)
	if err != nil {
		var notFound graph.ErrRunNotFound
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		h.log.Error("Failed to delete graph", zap.String("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete graph"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "deleted": deleted})
}

func (h *handlers) runError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, kgerrors.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case kgerrors.IsErrorType(err, kgerrors.ErrorTypeGeneration):
		h.log.Error("Generation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Triplet generation failed"})
	default:
		h.log.Error("Extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Extraction failed"})
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
