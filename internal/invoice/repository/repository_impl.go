package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/pkg/db/option"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, invoice_number, client_id, status, issue_date, due_date, sent_date, subtotal, tax_rate, tax_amount, total, amount_paid, balance_due, notes, template_id, schedule_id, period_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.ClientID,
		invoice.Status,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.SentDate,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.TaxAmount,
		invoice.Total,
		invoice.AmountPaid,
		invoice.BalanceDue,
		invoice.Notes,
		invoice.TemplateID,
		invoice.ScheduleID,
		invoice.PeriodDate,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

// insertGeneratedSQL picks the duplicate-key handling the dialect
// understands. Postgres and sqlite match the partial unique index on
// (schedule_id, period_date); mysql cannot express a partial index, so
// it carries a plain unique index there (NULL schedule_ids never
// collide) and INSERT IGNORE gives the same skip-on-conflict.
func insertGeneratedSQL(dialect string) string {
	const columns = `(id, invoice_number, client_id, status, issue_date, due_date, sent_date, subtotal, tax_rate, tax_amount, total, amount_paid, balance_due, notes, template_id, schedule_id, period_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if dialect == "mysql" {
		return `INSERT IGNORE INTO invoices ` + columns
	}
	return `INSERT INTO invoices ` + columns +
		` ON CONFLICT (schedule_id, period_date) WHERE schedule_id IS NOT NULL DO NOTHING`
}

func (r *repo) InsertGenerated(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) (bool, error) {
	result := db.WithContext(ctx).Exec(
		insertGeneratedSQL(db.Dialector.Name()),
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.ClientID,
		invoice.Status,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.SentDate,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.TaxAmount,
		invoice.Total,
		invoice.AmountPaid,
		invoice.BalanceDue,
		invoice.Notes,
		invoice.TemplateID,
		invoice.ScheduleID,
		invoice.PeriodDate,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	for i := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO line_items (id, invoice_id, description, quantity, unit_rate, amount, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			items[i].ID,
			items[i].InvoiceID,
			items[i].Description,
			items[i].Quantity,
			items[i].UnitRate,
			items[i].Amount,
			items[i].Position,
			items[i].CreatedAt,
			items[i].UpdatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM line_items WHERE invoice_id = ?`, invoiceID).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_number, client_id, status, issue_date, due_date, sent_date, subtotal, tax_rate, tax_amount, total, amount_paid, balance_due, notes, template_id, schedule_id, period_date, created_at, updated_at
		 FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, description, quantity, unit_rate, amount, position, created_at, updated_at
		 FROM line_items WHERE invoice_id = ? ORDER BY position ASC, id ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindPayments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.PaymentSummary, error) {
	var payments []domain.PaymentSummary
	err := db.WithContext(ctx).Raw(
		`SELECT id, amount, payment_date, method, reference, notes
		 FROM payments WHERE invoice_id = ? ORDER BY payment_date ASC, id ASC`,
		invoiceID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Number != "" {
		stmt = stmt.Where("invoice_number LIKE ?", "%"+filter.Number+"%")
	}
	if filter.DueFrom != nil {
		stmt = stmt.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		stmt = stmt.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.IssueFrom != nil {
		stmt = stmt.Where("issue_date >= ?", *filter.IssueFrom)
	}
	if filter.IssueTo != nil {
		stmt = stmt.Where("issue_date <= ?", *filter.IssueTo)
	}
	if filter.OverdueAsOf != nil {
		stmt = stmt.Where("status = ? AND due_date < ? AND balance_due > 0", domain.StatusSent, *filter.OverdueAsOf)
	}
	if filter.ExcludeOverdueAsOf != nil {
		stmt = stmt.Where("NOT (due_date < ? AND balance_due > 0)", *filter.ExcludeOverdueAsOf)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET invoice_number = ?, client_id = ?, status = ?, issue_date = ?, due_date = ?, sent_date = ?, subtotal = ?, tax_rate = ?, tax_amount = ?, total = ?, amount_paid = ?, balance_due = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		invoice.InvoiceNumber,
		invoice.ClientID,
		invoice.Status,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.SentDate,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.TaxAmount,
		invoice.Total,
		invoice.AmountPaid,
		invoice.BalanceDue,
		invoice.Notes,
		invoice.UpdatedAt,
		invoice.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM payments WHERE invoice_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM line_items WHERE invoice_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM invoices WHERE id = ?`, id).Error
}
