package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/medflow/backend/internal/models"
	"github.com/example/medflow/backend/internal/repository"
	"github.com/example/medflow/backend/internal/service"
)

// Server wraps the gin engine and collaborators needed to handle API requests.
type Server struct {
	Engine    *gin.Engine
	workflows *repository.WorkflowRepository
	workflow  *service.WorkflowService
	sync      *service.MediaSynchronizer
}

// NewServer constructs a new API server and registers routes.
func NewServer(workflows *repository.WorkflowRepository, workflow *service.WorkflowService, sync *service.MediaSynchronizer) *Server {
	router := gin.Default()
	srv := &Server{Engine: router, workflows: workflows, workflow: workflow, sync: sync}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	api := s.Engine.Group("/api")
	api.GET("/workflows", s.listWorkflows)
	api.GET("/workflows/:id", s.getWorkflow)
	api.POST("/workflows", s.createWorkflow)
	api.PUT("/workflows/:id", s.completeStep)
	api.PUT("/workflows", s.patchWorkflow)
	api.PATCH("/workflows", s.patchStepStatus)
	api.DELETE("/workflows/:id", s.deleteWorkflow)
	api.DELETE("/workflows", s.deleteAllWorkflows)
	api.POST("/workflows/sync-media", s.syncMedia)
}

func (s *Server) listWorkflows(c *gin.Context) {
	workflows, err := s.workflows.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows, "count": len(workflows)})
}

func (s *Server) getWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	wf, err := s.workflows.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (s *Server) createWorkflow(c *gin.Context) {
	var payload struct {
		ScheduleRef    string `json:"scheduleRef" binding:"required"`
		AssigneeName   string `json:"assigneeName" binding:"required"`
		DepartmentName string `json:"departmentName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := s.workflow.CreateWorkflow(c.Request.Context(), payload.ScheduleRef, payload.AssigneeName, payload.DepartmentName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf, "message": "workflow ready"})
}

func (s *Server) completeStep(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var payload struct {
		StepID   int              `json:"stepId" binding:"required"`
		FormData *models.FormData `json:"formData" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := s.workflow.CompleteStep(c.Request.Context(), id, payload.StepID, payload.FormData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workflow":       wf,
		"currentStep":    wf.CurrentStep,
		"workflowStatus": wf.WorkflowStatus,
	})
}

func (s *Server) patchWorkflow(c *gin.Context) {
	var payload struct {
		WorkflowID string         `json:"workflowId" binding:"required"`
		Updates    map[string]any `json:"updates" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(payload.WorkflowID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflowId"})
		return
	}

	wf, err := s.workflow.PatchWorkflow(c.Request.Context(), id, payload.Updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (s *Server) patchStepStatus(c *gin.Context) {
	var payload struct {
		WorkflowID string            `json:"workflowId" binding:"required"`
		StepID     int               `json:"stepId" binding:"required"`
		Status     models.StepStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(payload.WorkflowID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflowId"})
		return
	}

	wf, err := s.workflow.PatchStepStatus(c.Request.Context(), id, payload.StepID, payload.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.workflows.DeleteByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "workflow deleted"})
}

func (s *Server) deleteAllWorkflows(c *gin.Context) {
	count, err := s.workflows.DeleteAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all workflows deleted", "deletedCount": count})
}

func (s *Server) syncMedia(c *gin.Context) {
	report, err := s.sync.SyncCompletedWorkflows(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "media sync complete", "counts": report})
}

// respondError maps classified errors onto HTTP statuses. Anything
// unclassified, store failures included, is a plain 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
