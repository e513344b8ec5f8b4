package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	"github.com/smallbiznis/factura/internal/client/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Client{}, domain.ErrInvalidEmail
	}

	street := strings.TrimSpace(req.Street)
	city := strings.TrimSpace(req.City)
	state := strings.TrimSpace(req.State)
	zip := strings.TrimSpace(req.Zip)
	country := strings.TrimSpace(req.Country)
	if street == "" || city == "" || state == "" || zip == "" || country == "" {
		return domain.Client{}, domain.ErrInvalidAddress
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		Street:    street,
		City:      city,
		State:     state,
		Zip:       zip,
		Country:   country,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionCreated, client.ID, nil, client)
	return client, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateClientRequest) (domain.Client, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if existing == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	previous := *existing
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Client{}, domain.ErrInvalidName
		}
		updated.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domain.Client{}, domain.ErrInvalidEmail
		}
		updated.Email = email
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Company != nil {
		updated.Company = strings.TrimSpace(*req.Company)
	}
	addressFields := []struct {
		input  *string
		target *string
	}{
		{req.Street, &updated.Street},
		{req.City, &updated.City},
		{req.State, &updated.State},
		{req.Zip, &updated.Zip},
		{req.Country, &updated.Country},
	}
	for _, field := range addressFields {
		if field.input == nil {
			continue
		}
		value := strings.TrimSpace(*field.input)
		if value == "" {
			return domain.Client{}, domain.ErrInvalidAddress
		}
		*field.target = value
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &updated); err != nil {
		return domain.Client{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetClientRequest) (domain.Client, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	filter := domain.ListClientFilter{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Search:      strings.TrimSpace(req.Search),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(client *domain.Client) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        client.ID.String(),
			CreatedAt: client.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}

	resp := domain.ListClientResponse{Clients: clients}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteClientRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	count, err := s.repo.CountInvoices(ctx, s.db, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrHasInvoices
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
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
		EntityType: auditdomain.EntityClient,
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
