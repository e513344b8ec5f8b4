package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/internal/client/domain"
	"github.com/smallbiznis/factura/pkg/db/option"
	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, name, email, phone, company, street, city, state, zip, country, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Email,
		client.Phone,
		client.Company,
		client.Street,
		client.City,
		client.State,
		client.Zip,
		client.Country,
		client.Notes,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, company, street, city, state, zip, country, notes, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListClientFilter, page pagination.Pagination) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).Model(&domain.Client{})
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where("name LIKE ? OR company LIKE ? OR email LIKE ?", pattern, pattern, pattern)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients SET name = ?, email = ?, phone = ?, company = ?, street = ?, city = ?, state = ?, zip = ?, country = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		client.Name,
		client.Email,
		client.Phone,
		client.Company,
		client.Street,
		client.City,
		client.State,
		client.Zip,
		client.Country,
		client.Notes,
		client.UpdatedAt,
		client.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM clients WHERE id = ?`, id).Error
}

func (r *repo) CountInvoices(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices WHERE client_id = ?`,
		id,
	).Scan(&count).Error
	return count, err
}
