package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	"github.com/smallbiznis/factura/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		audit: p.Audit,
	}
}

func (s *Service) GetCompany(ctx context.Context) (domain.CompanySettings, error) {
	var settings domain.CompanySettings
	err := s.db.WithContext(ctx).
		Where("id = ?", 1).
		First(&settings).Error
	if err != nil {
		return domain.CompanySettings{}, err
	}
	return settings, nil
}

func (s *Service) UpdateCompany(ctx context.Context, req domain.UpdateCompanyRequest) (domain.CompanySettings, error) {
	existing, err := s.GetCompany(ctx)
	if err != nil {
		return domain.CompanySettings{}, err
	}

	previous := existing
	updated := existing
	if req.CompanyName != nil {
		updated.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return domain.CompanySettings{}, domain.ErrInvalidEmail
		}
		updated.Email = email
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.TaxID != nil {
		updated.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.LogoURL != nil {
		updated.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.InvoicePrefix != nil {
		prefix := strings.TrimSpace(*req.InvoicePrefix)
		if prefix == "" || len(prefix) > 16 {
			return domain.CompanySettings{}, domain.ErrInvalidPrefix
		}
		updated.InvoicePrefix = prefix
	}
	if req.DefaultTaxRate != nil {
		if *req.DefaultTaxRate < 0 || *req.DefaultTaxRate > 1 {
			return domain.CompanySettings{}, domain.ErrInvalidTaxRate
		}
		updated.DefaultTaxRate = *req.DefaultTaxRate
	}
	if req.DefaultDueDays != nil {
		if *req.DefaultDueDays < 0 {
			return domain.CompanySettings{}, domain.ErrInvalidDueDays
		}
		updated.DefaultDueDays = *req.DefaultDueDays
	}
	if req.Currency != nil {
		updated.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.PaymentInstructions != nil {
		updated.PaymentInstructions = strings.TrimSpace(*req.PaymentInstructions)
	}
	updated.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).
		Model(&domain.CompanySettings{}).
		Where("id = ?", 1).
		Updates(map[string]any{
			"company_name":         updated.CompanyName,
			"email":                updated.Email,
			"phone":                updated.Phone,
			"address":              updated.Address,
			"tax_id":               updated.TaxID,
			"logo_url":             updated.LogoURL,
			"invoice_prefix":       updated.InvoicePrefix,
			"default_tax_rate":     updated.DefaultTaxRate,
			"default_due_days":     updated.DefaultDueDays,
			"currency":             updated.Currency,
			"payment_instructions": updated.PaymentInstructions,
			"updated_at":           updated.UpdatedAt,
		}).Error
	if err != nil {
		return domain.CompanySettings{}, err
	}

	s.emitAudit(ctx, previous, updated)
	return updated, nil
}

func (s *Service) GetApp(ctx context.Context) (domain.AppSettings, error) {
	var settings domain.AppSettings
	err := s.db.WithContext(ctx).
		Where("id = ?", 1).
		First(&settings).Error
	if err != nil {
		return domain.AppSettings{}, err
	}
	return settings, nil
}

func (s *Service) UpdateApp(ctx context.Context, req domain.UpdateAppRequest) (domain.AppSettings, error) {
	existing, err := s.GetApp(ctx)
	if err != nil {
		return domain.AppSettings{}, err
	}

	previous := existing
	updated := existing
	if req.DateFormat != nil {
		updated.DateFormat = strings.TrimSpace(*req.DateFormat)
	}
	if req.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*req.Theme))
		if theme != "light" && theme != "dark" {
			return domain.AppSettings{}, domain.ErrInvalidTheme
		}
		updated.Theme = theme
	}
	if req.DefaultNotes != nil {
		updated.DefaultNotes = strings.TrimSpace(*req.DefaultNotes)
	}
	updated.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).
		Model(&domain.AppSettings{}).
		Where("id = ?", 1).
		Updates(map[string]any{
			"date_format":   updated.DateFormat,
			"theme":         updated.Theme,
			"default_notes": updated.DefaultNotes,
			"updated_at":    updated.UpdatedAt,
		}).Error
	if err != nil {
		return domain.AppSettings{}, err
	}

	s.emitAudit(ctx, previous, updated)
	return updated, nil
}

// NextInvoiceNumber increments the numbering counter and formats the
// allocated number. The row update and the invoice insert share the
// caller's transaction so a rollback releases the number.
func (s *Service) NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	if tx == nil {
		tx = s.db
	}

	var settings domain.CompanySettings
	if err := tx.WithContext(ctx).
		Where("id = ?", 1).
		First(&settings).Error; err != nil {
		return "", err
	}

	allocated := settings.NextInvoiceNumber
	err := tx.WithContext(ctx).Exec(
		`UPDATE company_settings SET next_invoice_number = next_invoice_number + 1, updated_at = ? WHERE id = 1`,
		time.Now().UTC(),
	).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%04d", settings.InvoicePrefix, allocated), nil
}

func (s *Service) emitAudit(ctx context.Context, previous, current any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: auditdomain.EntitySettings,
		EntityID:   1,
		Action:     auditdomain.ActionUpdated,
		Previous:   previous,
		Current:    current,
	}); err != nil {
		s.log.Warn("activity log write failed", zap.Error(err))
	}
}
