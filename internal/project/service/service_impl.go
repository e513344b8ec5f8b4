package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	"github.com/smallbiznis/factura/internal/clock"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"github.com/smallbiznis/factura/internal/project/domain"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Invoices invoicedomain.Repository
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	invoices invoicedomain.Repository
	audit    auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("project.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
		audit:    p.Audit,
	}
}

func (s *Service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (domain.Project, error) {
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return domain.Project{}, domain.ErrInvalidClient
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Project{}, domain.ErrInvalidName
	}
	if req.HourlyRate < 0 {
		return domain.Project{}, domain.ErrInvalidRate
	}

	now := s.clock.Now()
	project := domain.Project{
		ID:          s.genID.Generate(),
		ClientID:    clientID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.ProjectActive,
		HourlyRate:  req.HourlyRate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.clientExists(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrInvalidClient
		}
		return s.repo.InsertProject(ctx, tx, &project)
	})
	if err != nil {
		return domain.Project{}, err
	}

	s.emitAudit(ctx, auditdomain.EntityProject, auditdomain.ActionCreated, project.ID, nil, project)
	return project, nil
}

func (s *Service) UpdateProject(ctx context.Context, req domain.UpdateProjectRequest) (domain.Project, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Project{}, domain.ErrInvalidID
	}

	existing, err := s.repo.FindProject(ctx, s.db, id)
	if err != nil {
		return domain.Project{}, err
	}
	if existing == nil {
		return domain.Project{}, domain.ErrNotFound
	}

	previous := *existing
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Project{}, domain.ErrInvalidName
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status := domain.ProjectStatus(strings.TrimSpace(*req.Status))
		if status != domain.ProjectActive && status != domain.ProjectArchived {
			return domain.Project{}, domain.ErrInvalidStatus
		}
		updated.Status = status
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return domain.Project{}, domain.ErrInvalidRate
		}
		updated.HourlyRate = *req.HourlyRate
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateProject(ctx, s.db, &updated); err != nil {
		return domain.Project{}, err
	}

	s.emitAudit(ctx, auditdomain.EntityProject, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) GetProject(ctx context.Context, req domain.GetProjectRequest) (domain.Project, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Project{}, domain.ErrInvalidID
	}

	project, err := s.repo.FindProject(ctx, s.db, id)
	if err != nil {
		return domain.Project{}, err
	}
	if project == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	return *project, nil
}

func (s *Service) ListProjects(ctx context.Context, req domain.ListProjectRequest) (domain.ListProjectResponse, error) {
	filter := domain.ProjectFilter{}
	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err := parseID(req.ClientID)
		if err != nil {
			return domain.ListProjectResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = clientID
	}
	if status := domain.ProjectStatus(strings.TrimSpace(req.Status)); status != "" {
		if status != domain.ProjectActive && status != domain.ProjectArchived {
			return domain.ListProjectResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListProjects(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListProjectResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(project *domain.Project) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        project.ID.String(),
			CreatedAt: project.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}

	resp := domain.ListProjectResponse{Projects: projects}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) DeleteProject(ctx context.Context, req domain.DeleteProjectRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	var deleted domain.Project
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindProject(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		billed, err := s.repo.CountBilledEntries(ctx, tx, id)
		if err != nil {
			return err
		}
		if billed > 0 {
			return domain.ErrHasEntries
		}

		deleted = *existing
		return s.repo.DeleteProject(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.EntityProject, auditdomain.ActionDeleted, id, deleted, nil)
	return nil
}

func (s *Service) CreateTask(ctx context.Context, req domain.CreateTaskRequest) (domain.Task, error) {
	projectID, err := parseID(req.ProjectID)
	if err != nil {
		return domain.Task{}, domain.ErrInvalidID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Task{}, domain.ErrInvalidName
	}

	project, err := s.repo.FindProject(ctx, s.db, projectID)
	if err != nil {
		return domain.Task{}, err
	}
	if project == nil {
		return domain.Task{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	task := domain.Task{
		ID:          s.genID.Generate(),
		ProjectID:   projectID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.TaskOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertTask(ctx, s.db, &task); err != nil {
		return domain.Task{}, err
	}

	s.emitAudit(ctx, auditdomain.EntityTask, auditdomain.ActionCreated, task.ID, nil, task)
	return task, nil
}

func (s *Service) UpdateTask(ctx context.Context, req domain.UpdateTaskRequest) (domain.Task, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Task{}, domain.ErrInvalidID
	}

	existing, err := s.repo.FindTask(ctx, s.db, id)
	if err != nil {
		return domain.Task{}, err
	}
	if existing == nil {
		return domain.Task{}, domain.ErrNotFound
	}

	previous := *existing
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Task{}, domain.ErrInvalidName
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status := domain.TaskStatus(strings.TrimSpace(*req.Status))
		if status != domain.TaskOpen && status != domain.TaskDone {
			return domain.Task{}, domain.ErrInvalidStatus
		}
		updated.Status = status
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateTask(ctx, s.db, &updated); err != nil {
		return domain.Task{}, err
	}

	s.emitAudit(ctx, auditdomain.EntityTask, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) ListTasks(ctx context.Context, req domain.ListTaskRequest) ([]domain.Task, error) {
	projectID, err := parseID(req.ProjectID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	filter := domain.TaskFilter{ProjectID: projectID}
	if status := domain.TaskStatus(strings.TrimSpace(req.Status)); status != "" {
		if status != domain.TaskOpen && status != domain.TaskDone {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	return s.repo.ListTasks(ctx, s.db, filter)
}

func (s *Service) DeleteTask(ctx context.Context, req domain.DeleteTaskRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	existing, err := s.repo.FindTask(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.DeleteTask(ctx, s.db, id); err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.EntityTask, auditdomain.ActionDeleted, id, *existing, nil)
	return nil
}

func (s *Service) CreateTimeEntry(ctx context.Context, req domain.CreateTimeEntryRequest) (domain.TimeEntry, error) {
	projectID, err := parseID(req.ProjectID)
	if err != nil {
		return domain.TimeEntry{}, domain.ErrInvalidID
	}
	if req.Minutes <= 0 {
		return domain.TimeEntry{}, domain.ErrInvalidMinutes
	}
	if req.HourlyRate < 0 {
		return domain.TimeEntry{}, domain.ErrInvalidRate
	}

	project, err := s.repo.FindProject(ctx, s.db, projectID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if project == nil {
		return domain.TimeEntry{}, domain.ErrNotFound
	}

	var taskID *snowflake.ID
	if strings.TrimSpace(req.TaskID) != "" {
		id, err := parseID(req.TaskID)
		if err != nil {
			return domain.TimeEntry{}, domain.ErrInvalidID
		}
		task, err := s.repo.FindTask(ctx, s.db, id)
		if err != nil {
			return domain.TimeEntry{}, err
		}
		if task == nil || task.ProjectID != projectID {
			return domain.TimeEntry{}, domain.ErrNotFound
		}
		taskID = &id
	}

	now := s.clock.Now()
	entryDate := dateOnly(now)
	if req.EntryDate != nil {
		entryDate = dateOnly(*req.EntryDate)
	}
	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}

	entry := domain.TimeEntry{
		ID:          s.genID.Generate(),
		ProjectID:   projectID,
		TaskID:      taskID,
		Description: strings.TrimSpace(req.Description),
		EntryDate:   entryDate,
		Minutes:     req.Minutes,
		HourlyRate:  req.HourlyRate,
		Billable:    billable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertTimeEntry(ctx, s.db, &entry); err != nil {
		return domain.TimeEntry{}, err
	}

	s.emitAudit(ctx, auditdomain.EntityTime, auditdomain.ActionCreated, entry.ID, nil, entry)
	return entry, nil
}

func (s *Service) UpdateTimeEntry(ctx context.Context, req domain.UpdateTimeEntryRequest) (domain.TimeEntry, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.TimeEntry{}, domain.ErrInvalidID
	}

	existing, err := s.repo.FindTimeEntry(ctx, s.db, id)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if existing == nil {
		return domain.TimeEntry{}, domain.ErrNotFound
	}
	if existing.Billed {
		return domain.TimeEntry{}, domain.ErrEntryBilled
	}

	previous := *existing
	updated := *existing
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.EntryDate != nil {
		updated.EntryDate = dateOnly(*req.EntryDate)
	}
	if req.Minutes != nil {
		if *req.Minutes <= 0 {
			return domain.TimeEntry{}, domain.ErrInvalidMinutes
		}
		updated.Minutes = *req.Minutes
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return domain.TimeEntry{}, domain.ErrInvalidRate
		}
		updated.HourlyRate = *req.HourlyRate
	}
	if req.Billable != nil {
		updated.Billable = *req.Billable
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateTimeEntry(ctx, s.db, &updated); err != nil {
		return domain.TimeEntry{}, err
	}

	s.emitAudit(ctx, auditdomain.EntityTime, auditdomain.ActionUpdated, updated.ID, previous, updated)
	return updated, nil
}

func (s *Service) ListTimeEntries(ctx context.Context, req domain.ListTimeEntryRequest) ([]domain.TimeEntry, error) {
	projectID, err := parseID(req.ProjectID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	filter := domain.TimeEntryFilter{
		ProjectID: projectID,
		Billable:  req.Billable,
		Billed:    req.Billed,
	}
	if strings.TrimSpace(req.TaskID) != "" {
		taskID, err := parseID(req.TaskID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.TaskID = taskID
	}
	return s.repo.ListTimeEntries(ctx, s.db, filter)
}

func (s *Service) DeleteTimeEntry(ctx context.Context, req domain.DeleteTimeEntryRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	existing, err := s.repo.FindTimeEntry(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	if existing.Billed {
		return domain.ErrEntryBilled
	}

	if err := s.repo.DeleteTimeEntry(ctx, s.db, id); err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.EntityTime, auditdomain.ActionDeleted, id, *existing, nil)
	return nil
}

func (s *Service) Summary(ctx context.Context, req domain.GetProjectRequest) (domain.BillableSummary, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.BillableSummary{}, domain.ErrInvalidID
	}

	project, err := s.repo.FindProject(ctx, s.db, id)
	if err != nil {
		return domain.BillableSummary{}, err
	}
	if project == nil {
		return domain.BillableSummary{}, domain.ErrNotFound
	}

	billable := true
	billed := false
	entries, err := s.repo.ListTimeEntries(ctx, s.db, domain.TimeEntryFilter{
		ProjectID: id,
		Billable:  &billable,
		Billed:    &billed,
	})
	if err != nil {
		return domain.BillableSummary{}, err
	}

	summary := domain.BillableSummary{ProjectID: id.String()}
	for _, entry := range entries {
		summary.Entries++
		summary.Minutes += entry.Minutes
		summary.Amount += entryAmount(entry, project.HourlyRate)
	}
	return summary, nil
}

func (s *Service) AttachTimeToInvoice(ctx context.Context, req domain.AttachTimeRequest) (domain.AttachTimeResult, error) {
	projectID, err := parseID(req.ProjectID)
	if err != nil {
		return domain.AttachTimeResult{}, domain.ErrInvalidID
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.AttachTimeResult{}, domain.ErrInvalidInvoice
	}

	var result domain.AttachTimeResult
	var previous, updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.repo.FindProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return domain.ErrNotFound
		}

		invoice, err := s.invoices.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvalidInvoice
		}
		if invoice.Status != invoicedomain.StatusDraft {
			return domain.ErrInvoiceNotDraft
		}

		entries, err := s.resolveEntries(ctx, tx, projectID, req.EntryIDs)
		if err != nil {
			return err
		}

		result = domain.AttachTimeResult{InvoiceID: invoiceID.String()}
		if len(entries) == 0 {
			return nil
		}

		existing, err := s.invoices.FindItems(ctx, tx, invoiceID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		items := make([]invoicedomain.LineItem, 0, len(entries))
		for i := range entries {
			rate := entries[i].EffectiveRate(project.HourlyRate)
			hours := float64(entries[i].Minutes) / 60
			item := invoicedomain.LineItem{
				ID:          s.genID.Generate(),
				InvoiceID:   invoiceID,
				Description: entryDescription(entries[i], project.Name),
				Quantity:    hours,
				UnitRate:    rate,
				Amount:      invoicedomain.ItemAmount(hours, rate),
				Position:    len(existing) + i,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			items = append(items, item)
			result.Entries++
			result.Amount += item.Amount

			entries[i].Billed = true
			entries[i].InvoiceID = &invoiceID
			entries[i].UpdatedAt = now
			if err := s.repo.UpdateTimeEntry(ctx, tx, &entries[i]); err != nil {
				return err
			}
		}

		if err := s.invoices.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		totals := invoicedomain.ComputeTotals(append(existing, items...), invoice.TaxRate, invoice.AmountPaid)
		previous = *invoice
		next := *invoice
		next.Subtotal = totals.Subtotal
		next.TaxAmount = totals.TaxAmount
		next.Total = totals.Total
		next.BalanceDue = totals.BalanceDue
		next.UpdatedAt = now

		if err := s.invoices.Update(ctx, tx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.AttachTimeResult{}, err
	}

	if result.Entries > 0 {
		s.emitAudit(ctx, auditdomain.EntityInvoice, auditdomain.ActionUpdated, updated.ID, previous, updated)
	}
	return result, nil
}

func (s *Service) resolveEntries(ctx context.Context, tx *gorm.DB, projectID snowflake.ID, entryIDs []string) ([]domain.TimeEntry, error) {
	if len(entryIDs) == 0 {
		billable := true
		billed := false
		return s.repo.ListTimeEntries(ctx, tx, domain.TimeEntryFilter{
			ProjectID: projectID,
			Billable:  &billable,
			Billed:    &billed,
		})
	}

	entries := make([]domain.TimeEntry, 0, len(entryIDs))
	for _, raw := range entryIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		entry, err := s.repo.FindTimeEntry(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil || entry.ProjectID != projectID {
			return nil, domain.ErrNotFound
		}
		if entry.Billed {
			return nil, domain.ErrEntryBilled
		}
		if !entry.Billable {
			return nil, domain.ErrInvalidID
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *Service) clientExists(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(`SELECT COUNT(*) FROM clients WHERE id = ?`, id).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) emitAudit(ctx context.Context, entity, action string, id snowflake.ID, previous, current any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.Entry{
		EntityType: entity,
		EntityID:   id,
		Action:     action,
		Previous:   previous,
		Current:    current,
	}); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}

func entryAmount(entry domain.TimeEntry, projectRate int64) int64 {
	return invoicedomain.ItemAmount(float64(entry.Minutes)/60, entry.EffectiveRate(projectRate))
}

func entryDescription(entry domain.TimeEntry, projectName string) string {
	if desc := strings.TrimSpace(entry.Description); desc != "" {
		return desc
	}
	return fmt.Sprintf("%s: time worked %s", projectName, entry.EntryDate.Format("2006-01-02"))
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
