package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"quartermaster/internal/constraints"
	"quartermaster/internal/errors"
	"quartermaster/internal/negotiation"
	"quartermaster/internal/observability"
	"quartermaster/internal/planner"
	"quartermaster/pkg/types"
)

// writeError maps a typed error to its HTTP status and the uniform
// {"error": message} body.
func writeError(c *gin.Context, err error) {
	c.JSON(errors.StatusOf(err), gin.H{"error": err.Error()})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": serviceVersion,
		"status":  "running",
		"endpoints": gin.H{
			"health":      "/api/health",
			"components":  "/api/catalog/components",
			"vendors":     "/api/catalog/vendors",
			"items":       "/api/catalog/items",
			"search":      "/api/catalog/search",
			"procurement": "/api/procurement",
			"negotiate":   "/api/negotiate",
			"constraints": "/api/constraints",
			"sessions":    "/api/sessions",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"catalog_loaded": s.deps.Catalog.Len() > 0,
	})
}

func (s *Server) handleComponents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"components":  s.deps.Catalog.Components(),
		"details":     s.deps.Catalog.ComponentDetails(),
		"total_items": s.deps.Catalog.Len(),
	})
}

func (s *Server) handleVendors(c *gin.Context) {
	vendors := s.deps.Catalog.Vendors()
	c.JSON(http.StatusOK, gin.H{
		"vendors":       vendors,
		"details":       s.deps.Catalog.VendorDetails(),
		"total_vendors": len(vendors),
	})
}

func (s *Server) handleItems(c *gin.Context) {
	var items []types.Item
	if component := c.Query("component"); component != "" {
		items = s.deps.Catalog.Search(component, nil)
	} else {
		items = s.deps.Catalog.Items()
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	topK := 5
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be a positive integer"})
			return
		}
		topK = parsed
	}

	if s.deps.Index == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "semantic index not available"})
		return
	}
	items, err := s.deps.Index.Search(c.Request.Context(), query, topK)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": items, "count": len(items)})
}

// procurementRequest is the POST /api/procurement body: a plan request plus
// run options.
type procurementRequest struct {
	types.Request
	TopK        int    `json:"top_k"`
	Investigate bool   `json:"investigate"`
	LLMProvider string `json:"llm_provider"`
	APIKey      string `json:"api_key"`
}

func (s *Server) handleProcurement(c *gin.Context) {
	var body procurementRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := s.deps.Planner.Plan(c.Request.Context(), body.Request, planner.Options{
		TopK:        body.TopK,
		Investigate: body.Investigate,
		Provider:    body.LLMProvider,
		APIKey:      body.APIKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type negotiateRequest struct {
	SelectedItem types.Item    `json:"selected_item"`
	Request      types.Request `json:"request"`
}

func (s *Server) handleNegotiate(c *gin.Context) {
	var body negotiateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if body.SelectedItem.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selected_item is required"})
		return
	}

	_, span := s.deps.Tracer.StartSpan(c.Request.Context(), observability.SpanNegotiation,
		attribute.String(observability.AttrItemID, body.SelectedItem.ID),
		attribute.String(observability.AttrVendor, body.SelectedItem.Vendor),
	)
	outcome := negotiation.Review(body.SelectedItem, body.Request)
	span.SetAttributes(attribute.String(observability.AttrVerdict, outcome.Verdict))
	span.End()

	s.deps.Metrics.RecordNegotiation(c.Request.Context(), outcome.Verdict)
	c.JSON(http.StatusOK, outcome)
}

type applyConstraintsRequest struct {
	RequestID   string              `json:"request_id"`
	Candidates  []types.Candidate   `json:"candidates"`
	Constraints *constraints.Policy `json:"constraints"`
}

func (s *Server) handleApplyConstraints(c *gin.Context) {
	var body applyConstraintsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	application := s.deps.Constraints.Apply(body.RequestID, body.Candidates, body.Constraints)
	c.JSON(http.StatusOK, application)
}

func (s *Server) handleConstraintsHistory(c *gin.Context) {
	requestID := c.Param("request_id")
	policy, ok := s.deps.Constraints.History(requestID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no constraints recorded for request " + requestID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID, "constraints": policy})
}
