package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByInvoice(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]Payment, error)
	Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}
