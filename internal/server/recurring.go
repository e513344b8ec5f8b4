package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	recurringdomain "github.com/smallbiznis/factura/internal/recurring/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

func (s *Server) CreateSchedule(c *gin.Context) {
	var req recurringdomain.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Name = strings.TrimSpace(req.Name)
	req.Frequency = strings.TrimSpace(req.Frequency)

	resp, err := s.recurringSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSchedule(c *gin.Context) {
	var req recurringdomain.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.recurringSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchedules(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		Active   string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.recurringSvc.List(c.Request.Context(), recurringdomain.ListScheduleRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		ClientID:  strings.TrimSpace(query.ClientID),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetScheduleByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.recurringSvc.GetByID(c.Request.Context(), recurringdomain.GetScheduleRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSchedule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.recurringSvc.Delete(c.Request.Context(), recurringdomain.DeleteScheduleRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

// RunSchedules triggers one generation pass outside the ticker. The
// (schedule, period) unique key makes an overlap with the scheduler a
// no-op.
func (s *Server) RunSchedules(c *gin.Context) {
	report, err := s.recurringSvc.RunDue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func isScheduleValidationError(err error) bool {
	switch err {
	case recurringdomain.ErrInvalidID,
		recurringdomain.ErrInvalidClient,
		recurringdomain.ErrInvalidFrequency,
		recurringdomain.ErrInvalidInterval,
		recurringdomain.ErrInvalidItems,
		recurringdomain.ErrInvalidTaxRate,
		recurringdomain.ErrInvalidDateRange:
		return true
	default:
		return false
	}
}
