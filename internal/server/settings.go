package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
)

func (s *Server) GetCompanySettings(c *gin.Context) {
	resp, err := s.settingsSvc.GetCompany(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCompanySettings(c *gin.Context) {
	var req settingsdomain.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpdateCompany(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAppSettings(c *gin.Context) {
	resp, err := s.settingsSvc.GetApp(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAppSettings(c *gin.Context) {
	var req settingsdomain.UpdateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpdateApp(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSettingsValidationError(err error) bool {
	switch err {
	case settingsdomain.ErrInvalidEmail,
		settingsdomain.ErrInvalidTaxRate,
		settingsdomain.ErrInvalidDueDays,
		settingsdomain.ErrInvalidPrefix,
		settingsdomain.ErrInvalidTheme:
		return true
	default:
		return false
	}
}
