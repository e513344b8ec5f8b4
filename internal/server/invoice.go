package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.TemplateID = strings.TrimSpace(req.TemplateID)

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID  string `form:"client_id"`
		Status    string `form:"status"`
		Number    string `form:"number"`
		DueFrom   string `form:"due_from"`
		DueTo     string `form:"due_to"`
		IssueFrom string `form:"issue_from"`
		IssueTo   string `form:"issue_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueFrom, err := parseOptionalTime(query.DueFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("due_from", "invalid_due_from", "invalid due_from"))
		return
	}
	dueTo, err := parseOptionalTime(query.DueTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("due_to", "invalid_due_to", "invalid due_to"))
		return
	}
	issueFrom, err := parseOptionalTime(query.IssueFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("issue_from", "invalid_issue_from", "invalid issue_from"))
		return
	}
	issueTo, err := parseOptionalTime(query.IssueTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("issue_to", "invalid_issue_to", "invalid issue_to"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		ClientID:  strings.TrimSpace(query.ClientID),
		Status:    strings.TrimSpace(query.Status),
		Number:    strings.TrimSpace(query.Number),
		DueFrom:   dueFrom,
		DueTo:     dueTo,
		IssueFrom: issueFrom,
		IssueTo:   issueTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.invoiceSvc.Delete(c.Request.Context(), invoicedomain.DeleteInvoiceRequest{
		ID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) SendInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.invoiceSvc.Send(c.Request.Context(), invoicedomain.SendInvoiceRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.invoiceSvc.Cancel(c.Request.Context(), invoicedomain.CancelInvoiceRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.invoiceSvc.MarkPaid(c.Request.Context(), invoicedomain.MarkPaidRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.invoiceSvc.Reconcile(c.Request.Context(), invoicedomain.ReconcileRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	reader, err := s.pdfSvc.RenderInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="invoice-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidClient,
		invoicedomain.ErrInvalidTemplate,
		invoicedomain.ErrInvalidItems,
		invoicedomain.ErrInvalidQuantity,
		invoicedomain.ErrInvalidRate,
		invoicedomain.ErrInvalidTaxRate,
		invoicedomain.ErrInvalidDateRange,
		invoicedomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}
