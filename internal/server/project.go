package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/smallbiznis/factura/internal/project/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

func (s *Server) CreateProject(c *gin.Context) {
	var req projectdomain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Name = strings.TrimSpace(req.Name)

	resp, err := s.projectSvc.CreateProject(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProject(c *gin.Context) {
	var req projectdomain.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.projectSvc.UpdateProject(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjects(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.ListProjects(c.Request.Context(), projectdomain.ListProjectRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		ClientID:  strings.TrimSpace(query.ClientID),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.projectSvc.GetProject(c.Request.Context(), projectdomain.GetProjectRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProject(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.projectSvc.DeleteProject(c.Request.Context(), projectdomain.DeleteProjectRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetProjectSummary(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.projectSvc.Summary(c.Request.Context(), projectdomain.GetProjectRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AttachTimeToInvoice(c *gin.Context) {
	var req projectdomain.AttachTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ProjectID = strings.TrimSpace(c.Param("id"))
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)

	resp, err := s.projectSvc.AttachTimeToInvoice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateTask(c *gin.Context) {
	var req projectdomain.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ProjectID = strings.TrimSpace(c.Param("id"))
	req.Name = strings.TrimSpace(req.Name)

	resp, err := s.projectSvc.CreateTask(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTask(c *gin.Context) {
	var req projectdomain.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.projectSvc.UpdateTask(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTasks(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.ListTasks(c.Request.Context(), projectdomain.ListTaskRequest{
		ProjectID: strings.TrimSpace(c.Param("id")),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTask(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.projectSvc.DeleteTask(c.Request.Context(), projectdomain.DeleteTaskRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) CreateTimeEntry(c *gin.Context) {
	var req projectdomain.CreateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ProjectID = strings.TrimSpace(c.Param("id"))
	req.TaskID = strings.TrimSpace(req.TaskID)

	resp, err := s.projectSvc.CreateTimeEntry(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTimeEntry(c *gin.Context) {
	var req projectdomain.UpdateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.projectSvc.UpdateTimeEntry(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	var query struct {
		TaskID   string `form:"task_id"`
		Billable string `form:"billable"`
		Billed   string `form:"billed"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	billable, err := parseOptionalBool(query.Billable)
	if err != nil {
		AbortWithError(c, newValidationError("billable", "invalid_billable", "invalid billable"))
		return
	}
	billed, err := parseOptionalBool(query.Billed)
	if err != nil {
		AbortWithError(c, newValidationError("billed", "invalid_billed", "invalid billed"))
		return
	}

	resp, err := s.projectSvc.ListTimeEntries(c.Request.Context(), projectdomain.ListTimeEntryRequest{
		ProjectID: strings.TrimSpace(c.Param("id")),
		TaskID:    strings.TrimSpace(query.TaskID),
		Billable:  billable,
		Billed:    billed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTimeEntry(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.projectSvc.DeleteTimeEntry(c.Request.Context(), projectdomain.DeleteTimeEntryRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func isProjectValidationError(err error) bool {
	switch err {
	case projectdomain.ErrInvalidID,
		projectdomain.ErrInvalidClient,
		projectdomain.ErrInvalidName,
		projectdomain.ErrInvalidStatus,
		projectdomain.ErrInvalidRate,
		projectdomain.ErrInvalidMinutes,
		projectdomain.ErrInvalidInvoice:
		return true
	default:
		return false
	}
}
