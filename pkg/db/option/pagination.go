package option

import (
	"time"

	"github.com/smallbiznis/factura/pkg/db/pagination"
	"gorm.io/gorm"
)

type cursorPagination struct {
	page pagination.Pagination
}

// ApplyPagination applies a cursor page token and fetches one extra row so
// callers can detect whether more pages exist.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return cursorPagination{page: page}
}

func (p cursorPagination) Apply(db *gorm.DB) *gorm.DB {
	size := p.page.PageSize
	if size <= 0 {
		size = 50
	}

	if token := p.page.PageToken; token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err == nil && cursor != nil {
			if ts, tsErr := time.Parse(time.RFC3339, cursor.CreatedAt); tsErr == nil {
				db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", ts, ts, cursor.ID)
			}
		}
	}

	return db.Limit(size + 1)
}
