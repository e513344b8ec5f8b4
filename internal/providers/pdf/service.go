package pdf

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/observability/metrics"
	settingsdomain "github.com/smallbiznis/factura/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Renderer Renderer
	Invoices invoicedomain.Service
	Clients  clientdomain.Service
	Settings settingsdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service assembles the display document for an invoice and hands it
// to the renderer.
type Service struct {
	log      *zap.Logger
	renderer Renderer
	invoices invoicedomain.Service
	clients  clientdomain.Service
	settings settingsdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("pdf.service"),
		renderer: p.Renderer,
		invoices: p.Invoices,
		clients:  p.Clients,
		settings: p.Settings,
		metrics:  p.Metrics,
	}
}

func (s *Service) RenderInvoice(ctx context.Context, invoiceID string) (io.Reader, error) {
	detail, err := s.invoices.GetByID(ctx, invoicedomain.GetInvoiceRequest{ID: invoiceID})
	if err != nil {
		return nil, err
	}

	client, err := s.clients.GetByID(ctx, clientdomain.GetClientRequest{ID: detail.ClientID.String()})
	if err != nil {
		return nil, err
	}

	company, err := s.settings.GetCompany(ctx)
	if err != nil {
		return nil, err
	}

	doc := buildDocument(detail, client, company)
	reader, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPDFRendered(ctx)
	return reader, nil
}

func buildDocument(detail invoicedomain.InvoiceDetail, client clientdomain.Client, company settingsdomain.CompanySettings) InvoiceDocument {
	currency := company.Currency
	doc := InvoiceDocument{
		CompanyName:         company.CompanyName,
		CompanyAddress:      company.Address,
		CompanyEmail:        company.Email,
		CompanyPhone:        company.Phone,
		PaymentInstructions: company.PaymentInstructions,

		InvoiceNumber: detail.InvoiceNumber,
		Status:        strings.ToUpper(string(detail.EffectiveStatus)),
		IssueDate:     detail.IssueDate.Format("2006-01-02"),
		DueDate:       detail.DueDate.Format("2006-01-02"),

		BillToName:    client.Name,
		BillToCompany: client.Company,
		BillToAddress: formatClientAddress(client),
		BillToEmail:   client.Email,

		Subtotal:   formatMoney(detail.Subtotal, currency),
		TaxLabel:   fmt.Sprintf("Tax (%s%%)", trimFloat(detail.TaxRate*100)),
		TaxAmount:  formatMoney(detail.TaxAmount, currency),
		Total:      formatMoney(detail.Total, currency),
		AmountPaid: formatMoney(detail.AmountPaid, currency),
		BalanceDue: formatMoney(detail.BalanceDue, currency),

		Notes: detail.Notes,
	}
	if company.TaxID != "" {
		doc.TaxID = "Tax ID: " + company.TaxID
	}

	doc.Items = make([]DocumentItem, 0, len(detail.Items))
	for _, item := range detail.Items {
		doc.Items = append(doc.Items, DocumentItem{
			Description: item.Description,
			Quantity:    trimFloat(item.Quantity),
			UnitRate:    formatMoney(item.UnitRate, currency),
			Amount:      formatMoney(item.Amount, currency),
		})
	}
	return doc
}

func formatClientAddress(client clientdomain.Client) string {
	return fmt.Sprintf("%s, %s, %s %s, %s",
		client.Street, client.City, client.State, client.Zip, client.Country)
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
