package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/smallbiznis/factura/internal/template/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

func (s *Server) CreateTemplate(c *gin.Context) {
	var req templatedomain.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	resp, err := s.templateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTemplate(c *gin.Context) {
	var req templatedomain.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.templateSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTemplates(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.List(c.Request.Context(), templatedomain.ListTemplateRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Name:      strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTemplateByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.templateSvc.GetByID(c.Request.Context(), templatedomain.GetTemplateRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTemplate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.templateSvc.Delete(c.Request.Context(), templatedomain.DeleteTemplateRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func isTemplateValidationError(err error) bool {
	switch err {
	case templatedomain.ErrInvalidName,
		templatedomain.ErrInvalidItems,
		templatedomain.ErrInvalidTaxRate,
		templatedomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
