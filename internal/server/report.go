package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reportingdomain "github.com/smallbiznis/factura/internal/reporting/domain"
)

func (s *Server) GetDashboard(c *gin.Context) {
	resp, err := s.reportingSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRevenueReport(c *gin.Context) {
	var query struct {
		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.reportingSvc.Revenue(c.Request.Context(), reportingdomain.RevenueRequest{
		From: from,
		To:   to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetClientTotals(c *gin.Context) {
	resp, err := s.reportingSvc.ClientTotals(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatusBreakdown(c *gin.Context) {
	resp, err := s.reportingSvc.StatusBreakdown(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAgingReport(c *gin.Context) {
	resp, err := s.reportingSvc.Aging(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
