package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceDocument is the flattened, display-ready shape the renderer
// consumes. Money fields arrive already formatted.
type InvoiceDocument struct {
	CompanyName         string
	CompanyAddress      string
	CompanyEmail        string
	CompanyPhone        string
	TaxID               string
	PaymentInstructions string

	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string

	BillToName    string
	BillToCompany string
	BillToAddress string
	BillToEmail   string

	Items []DocumentItem

	Subtotal   string
	TaxLabel   string
	TaxAmount  string
	Total      string
	AmountPaid string
	BalanceDue string

	Notes string
}

type DocumentItem struct {
	Description string
	Quantity    string
	UnitRate    string
	Amount      string
}

type Renderer interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error)
}

type marotoRenderer struct{}

func NewRenderer() Renderer {
	return &marotoRenderer{}
}

func (r *marotoRenderer) RenderInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, doc.InvoiceNumber, props.Text{
			Size:  12,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(16,
		col.New(6).Add(
			text.New("Date of issue: "+doc.IssueDate, props.Text{Top: 0, Size: 9}),
			text.New("Date due: "+doc.DueDate, props.Text{Top: 4, Size: 9}),
			text.New("Status: "+doc.Status, props.Text{Top: 8, Size: 9}),
		),
		col.New(6),
	)

	m.AddRow(36,
		col.New(6).Add(
			text.New(doc.CompanyName, props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(doc.CompanyAddress, props.Text{Top: 5, Size: 9}),
			text.New(doc.CompanyEmail, props.Text{Top: 14, Size: 9}),
			text.New(doc.CompanyPhone, props.Text{Top: 18, Size: 9}),
			text.New(doc.TaxID, props.Text{Top: 22, Size: 9}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(doc.BillToName, props.Text{Top: 5, Size: 9}),
			text.New(doc.BillToCompany, props.Text{Top: 9, Size: 9}),
			text.New(doc.BillToAddress, props.Text{Top: 13, Size: 9}),
			text.New(doc.BillToEmail, props.Text{Top: 22, Size: 9}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitRate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, doc.TaxLabel, props.Text{Size: 9}),
		text.NewCol(2, doc.TaxAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(2, doc.Total, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Paid", props.Text{Size: 9}),
		text.NewCol(2, doc.AmountPaid, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Balance due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, doc.BalanceDue, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if doc.Notes != "" {
		m.AddRow(16,
			text.NewCol(12, doc.Notes, props.Text{Size: 9, Top: 4}),
		)
	}
	if doc.PaymentInstructions != "" {
		m.AddRow(16,
			text.NewCol(12, doc.PaymentInstructions, props.Text{Size: 9, Top: 4}),
		)
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice pdf: %w", err)
	}
	return bytes.NewReader(generated.GetBytes()), nil
}
