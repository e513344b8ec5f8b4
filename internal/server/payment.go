package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
)

func (s *Server) ApplyPayment(c *gin.Context) {
	var req paymentdomain.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvoiceID = strings.TrimSpace(c.Param("id"))
	req.Method = strings.TrimSpace(req.Method)

	resp, err := s.paymentSvc.Apply(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("id"))
	resp, err := s.paymentSvc.ListForInvoice(c.Request.Context(), paymentdomain.ListPaymentsRequest{
		InvoiceID: invoiceID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.paymentSvc.GetByID(c.Request.Context(), paymentdomain.GetPaymentRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePayment(c *gin.Context) {
	var req paymentdomain.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.paymentSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemovePayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.paymentSvc.Remove(c.Request.Context(), paymentdomain.RemovePaymentRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidID,
		paymentdomain.ErrInvalidInvoice,
		paymentdomain.ErrInvalidAmount,
		paymentdomain.ErrInvalidMethod:
		return true
	default:
		return false
	}
}
