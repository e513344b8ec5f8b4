package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	auditcontext "github.com/smallbiznis/factura/internal/auditcontext"
	obscontext "github.com/smallbiznis/factura/internal/observability/context"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	entityType := strings.TrimSpace(entry.EntityType)
	if entityType == "" || entry.EntityID == 0 {
		return auditdomain.ErrInvalidEntity
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = "system"
	}

	record := auditdomain.ActivityLog{
		ID:         s.genID.Generate(),
		EntityType: entityType,
		EntityID:   entry.EntityID,
		Action:     action,
		ActorType:  actorType,
		ActorID:    actorID,
		Source:     auditcontext.SourceFromContext(ctx),
		RequestID:  auditcontext.RequestIDFromContext(ctx),
		IPAddress:  auditcontext.IPAddressFromContext(ctx),
		UserAgent:  auditcontext.UserAgentFromContext(ctx),
		Previous:   marshalSnapshot(entry.Previous),
		Current:    marshalSnapshot(entry.Current),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		s.log.Warn("failed to write activity log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListActivityRequest) (auditdomain.ListActivityResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.ActivityCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.ActivityCursor{
			ID:        id,
			CreatedAt: createdAt,
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	var entityID snowflake.ID
	if strings.TrimSpace(req.EntityID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
		if err != nil || parsed == 0 {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidEntity
		}
		entityID = parsed
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		EntityType: strings.TrimSpace(req.EntityType),
		EntityID:   entityID,
		Action:     strings.TrimSpace(req.Action),
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListActivityResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.ActivityLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	activities := make([]auditdomain.ActivityLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		activities = append(activities, *item)
	}

	resp := auditdomain.ListActivityResponse{Activities: activities}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func marshalSnapshot(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
