// Package api exposes the workflow engine over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/store"
	"github.com/jobforge/jobforge/internal/workflow"
)

// Server wires the engine and the company directory into a gin router.
type Server struct {
	engine    *workflow.Engine
	companies store.CompanyDirectory
}

// NewServer creates the HTTP surface over the engine.
func NewServer(engine *workflow.Engine, companies store.CompanyDirectory) *Server {
	return &Server{engine: engine, companies: companies}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/postings", s.startPosting)
		v1.GET("/postings/:id", s.getPosting)
		v1.POST("/postings/:id/feedback", s.submitFeedback)
		v1.DELETE("/postings/:id", s.cancelPosting)
		v1.GET("/postings/:id/history", s.getHistory)

		v1.GET("/companies", s.searchCompanies)
		v1.GET("/companies/:ref", s.getCompany)
	}
	return r
}

type startRequest struct {
	RawText     string            `json:"raw_text" binding:"required"`
	Constraints map[string]string `json:"constraints"`
}

type feedbackRequest struct {
	Decision string `json:"decision" binding:"required"`
	Text     string `json:"text"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) startPosting(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := s.engine.Start(c.Request.Context(), req.RawText, req.Constraints)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) getPosting(c *gin.Context) {
	st, err := s.engine.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) submitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := model.Decision(req.Decision)
	if !model.ValidDecision(decision) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be one of approve, edit, regenerate, reject"})
		return
	}
	if decision == model.DecisionEdit && strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "edit decision needs replacement text"})
		return
	}

	st, err := s.engine.SubmitFeedback(c.Request.Context(), c.Param("id"), decision, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) cancelPosting(c *gin.Context) {
	st, err := s.engine.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) searchCompanies(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	companies, err := s.companies.SearchCompanies(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if companies == nil {
		companies = []store.CompanySummary{}
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (s *Server) getCompany(c *gin.Context) {
	company, err := s.companies.GetCompany(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (s *Server) getHistory(c *gin.Context) {
	entries, err := s.engine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow_id": c.Param("id"), "history": entries})
}

// fail maps engine errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrWorkflowNotFound), errors.Is(err, model.ErrCompanyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrWorkflowTerminal), errors.Is(err, model.ErrNotAwaitingInput):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrMalformedIntent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
