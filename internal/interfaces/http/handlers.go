package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/content-workflow/internal/application/service"
	"github.com/garyjia/content-workflow/internal/application/workflow"
	"github.com/garyjia/content-workflow/internal/domain/entity"
)

// StateRegistry is the state configuration surface
type StateRegistry interface {
	CreateState(ctx context.Context, input workflow.CreateStateInput) (*entity.State, error)
	SetInitialState(ctx context.Context, workflowType entity.WorkflowType, name string) (*entity.State, error)
	GetStates(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error)
	GetInitialState(ctx context.Context, workflowType entity.WorkflowType) (*entity.State, error)
}

// TransitionGraph is the transition configuration surface
type TransitionGraph interface {
	CreateTransition(ctx context.Context, input workflow.CreateTransitionInput) (*entity.Transition, error)
	GetTransitions(ctx context.Context, workflowType entity.WorkflowType, fromState string) ([]*entity.Transition, error)
}

// WorkflowEngine runs transitions and approvals for content entities
type WorkflowEngine interface {
	ExecuteTransition(ctx context.Context, entityID, transitionID int64, principal entity.Principal, comment string) (*workflow.Result, error)
	GetAvailableTransitions(ctx context.Context, entityID int64, principal entity.Principal) ([]*workflow.AvailableTransition, error)
	GetHistory(ctx context.Context, entityID int64) ([]*entity.History, error)
	ApproveOrReject(ctx context.Context, approvalID int64, principal entity.Principal, approved bool, comment string) (*workflow.Result, error)
	RequestApprovals(ctx context.Context, entityID, transitionID int64, requester entity.Principal, approverIDs []int64) ([]*entity.Approval, error)
	GetPendingApprovals(ctx context.Context, approverID *int64) ([]*entity.Approval, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	registry StateRegistry
	graph    TransitionGraph
	engine   WorkflowEngine
	contents service.ContentService
	exporter service.HistoryExportService
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	registry StateRegistry,
	graph TransitionGraph,
	engine WorkflowEngine,
	contents service.ContentService,
	exporter service.HistoryExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		registry: registry,
		graph:    graph,
		engine:   engine,
		contents: contents,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SetInitialStateRequest is the body of PUT /api/workflow/states/initial
type SetInitialStateRequest struct {
	WorkflowType entity.WorkflowType `json:"workflow_type"`
	Name         string              `json:"name" binding:"required"`
}

// CreateContentRequest is the body of POST /api/contents
type CreateContentRequest struct {
	Title string `json:"title" binding:"required"`
}

// ExecuteTransitionRequest is the optional body of POST /api/contents/:id/transitions/:transition_id
type ExecuteTransitionRequest struct {
	Comment string `json:"comment"`
}

// RequestApprovalsRequest is the body of POST /api/approvals
type RequestApprovalsRequest struct {
	EntityID     int64   `json:"entity_id" binding:"required"`
	TransitionID int64   `json:"transition_id" binding:"required"`
	ApproverIDs  []int64 `json:"approver_ids" binding:"required"`
}

// DecisionRequest is the body of POST /api/approvals/:id/decision
type DecisionRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment"`
}

// ExportResponse carries the storage path of a history export
type ExportResponse struct {
	Path string `json:"path"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateState handles POST /api/workflow/states
func (h *Handlers) CreateState(c *gin.Context) {
	var input workflow.CreateStateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	state, err := h.registry.CreateState(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: state})
}

// GetStates handles GET /api/workflow/states?type=
func (h *Handlers) GetStates(c *gin.Context) {
	wt, ok := workflowTypeQuery(c)
	if !ok {
		return
	}

	states, err := h.registry.GetStates(c.Request.Context(), wt)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: states})
}

// GetInitialState handles GET /api/workflow/states/initial?type=
func (h *Handlers) GetInitialState(c *gin.Context) {
	wt, ok := workflowTypeQuery(c)
	if !ok {
		return
	}

	state, err := h.registry.GetInitialState(c.Request.Context(), wt)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// SetInitialState handles PUT /api/workflow/states/initial
func (h *Handlers) SetInitialState(c *gin.Context) {
	var req SetInitialStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.WorkflowType == "" {
		req.WorkflowType = entity.WorkflowTypeContent
	}
	if !req.WorkflowType.IsValid() {
		badRequest(c, "unknown workflow type "+string(req.WorkflowType))
		return
	}

	state, err := h.registry.SetInitialState(c.Request.Context(), req.WorkflowType, req.Name)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// CreateTransition handles POST /api/workflow/transitions
func (h *Handlers) CreateTransition(c *gin.Context) {
	var input workflow.CreateTransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	transition, err := h.graph.CreateTransition(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: transition})
}

// GetTransitions handles GET /api/workflow/transitions?type=&from_state=
func (h *Handlers) GetTransitions(c *gin.Context) {
	wt, ok := workflowTypeQuery(c)
	if !ok {
		return
	}

	transitions, err := h.graph.GetTransitions(c.Request.Context(), wt, c.Query("from_state"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitions})
}

// CreateContent handles POST /api/contents
func (h *Handlers) CreateContent(c *gin.Context) {
	var req CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	content, err := h.contents.CreateContent(c.Request.Context(), req.Title, principalFrom(c).ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: content})
}

// GetContent handles GET /api/contents/:id
func (h *Handlers) GetContent(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	content, err := h.contents.GetContent(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: content})
}

// GetAvailableTransitions handles GET /api/contents/:id/transitions
func (h *Handlers) GetAvailableTransitions(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	transitions, err := h.engine.GetAvailableTransitions(c.Request.Context(), id, principalFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitions})
}

// ExecuteTransition handles POST /api/contents/:id/transitions/:transition_id
func (h *Handlers) ExecuteTransition(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	transitionID, ok := int64Param(c, "transition_id")
	if !ok {
		return
	}

	var req ExecuteTransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.engine.ExecuteTransition(c.Request.Context(), id, transitionID, principalFrom(c), req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusOK
	if result.Status == workflow.StatusPendingApproval {
		status = http.StatusAccepted
	}
	c.JSON(status, Response{Success: true, Data: result})
}

// GetHistory handles GET /api/contents/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	history, err := h.engine.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ExportHistory handles POST /api/contents/:id/history/export
func (h *Handlers) ExportHistory(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	path, err := h.exporter.ExportHistory(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: ExportResponse{Path: path}})
}

// RequestApprovals handles POST /api/approvals
func (h *Handlers) RequestApprovals(c *gin.Context) {
	var req RequestApprovalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	approvals, err := h.engine.RequestApprovals(c.Request.Context(), req.EntityID, req.TransitionID, principalFrom(c), req.ApproverIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: approvals})
}

// GetPendingApprovals handles GET /api/approvals/pending?user_id=
func (h *Handlers) GetPendingApprovals(c *gin.Context) {
	var approverID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "user_id must be a positive integer")
			return
		}
		approverID = &id
	}

	approvals, err := h.engine.GetPendingApprovals(c.Request.Context(), approverID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: approvals})
}

// DecideApproval handles POST /api/approvals/:id/decision
func (h *Handlers) DecideApproval(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.engine.ApproveOrReject(c.Request.Context(), id, principalFrom(c), *req.Approved, req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// workflowTypeQuery reads ?type=, defaulting to content
func workflowTypeQuery(c *gin.Context) (entity.WorkflowType, bool) {
	wt := entity.WorkflowType(c.DefaultQuery("type", string(entity.WorkflowTypeContent)))
	if !wt.IsValid() {
		badRequest(c, "unknown workflow type "+string(wt))
		return "", false
	}
	return wt, true
}
