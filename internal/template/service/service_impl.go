package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/template/domain"
	"github.com/smallbiznis/factura/pkg/db/option"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"github.com/smallbiznis/factura/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	store repository.Repository[domain.Template]
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("template.service"),
		genID: p.GenID,
		store: repository.ProvideStore[domain.Template](p.DB),
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTemplateRequest) (domain.Template, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Template{}, domain.ErrInvalidName
	}
	if err := validateItems(req.Items); err != nil {
		return domain.Template{}, err
	}
	if req.TaxRate < 0 || req.TaxRate > 1 {
		return domain.Template{}, domain.ErrInvalidTaxRate
	}

	encoded, err := domain.EncodeItems(req.Items)
	if err != nil {
		return domain.Template{}, domain.ErrInvalidItems
	}

	now := time.Now().UTC()
	template := domain.Template{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Items:       encoded,
		TaxRate:     req.TaxRate,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, &template); err != nil {
		return domain.Template{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionCreated, template.ID, nil, template)
	return template, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateTemplateRequest) (domain.Template, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Template{}, err
	}

	existing, err := s.store.FindOne(ctx, &domain.Template{ID: id})
	if err != nil {
		return domain.Template{}, err
	}
	if existing == nil {
		return domain.Template{}, domain.ErrNotFound
	}

	previous := *existing
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Template{}, domain.ErrInvalidName
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Items != nil {
		if err := validateItems(*req.Items); err != nil {
			return domain.Template{}, err
		}
		encoded, err := domain.EncodeItems(*req.Items)
		if err != nil {
			return domain.Template{}, domain.ErrInvalidItems
		}
		updated.Items = encoded
	}
	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate > 1 {
			return domain.Template{}, domain.ErrInvalidTaxRate
		}
		updated.TaxRate = *req.TaxRate
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, id.String(), map[string]any{
		"name":        updated.Name,
		"description": updated.Description,
		"items":       updated.Items,
		"tax_rate":    updated.TaxRate,
		"notes":       updated.Notes,
		"updated_at":  updated.UpdatedAt,
	}); err != nil {
		return domain.Template{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetTemplateRequest) (domain.Template, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Template{}, err
	}

	item, err := s.store.FindOne(ctx, &domain.Template{ID: id})
	if err != nil {
		return domain.Template{}, err
	}
	if item == nil {
		return domain.Template{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTemplateRequest) (domain.ListTemplateResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := &domain.Template{}
	if name := strings.TrimSpace(req.Name); name != "" {
		filter.Name = name
	}

	items, err := s.store.Find(ctx, filter,
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Desc: true, Allow: map[string]bool{"created_at": true}}),
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
	)
	if err != nil {
		return domain.ListTemplateResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(t *domain.Template) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        t.ID.String(),
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	templates := make([]domain.Template, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		templates = append(templates, *item)
	}

	resp := domain.ListTemplateResponse{Templates: templates}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteTemplateRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	existing, err := s.store.FindOne(ctx, &domain.Template{ID: id})
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	if err := s.store.Delete(ctx, id.String()); err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.ActionDeleted, id, *existing, nil)
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, id snowflake.ID, previous, current any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: auditdomain.EntityTemplate,
		EntityID:   id,
		Action:     action,
		Previous:   previous,
		Current:    current,
	}); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validateItems(items []invoicedomain.ItemInput) error {
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return domain.ErrInvalidItems
		}
		if item.Quantity < 0 || item.UnitRate < 0 {
			return domain.ErrInvalidItems
		}
	}
	return nil
}
