// Package option provides composable gorm query modifiers used by list
// endpoints: range conditions, ordering, and offset/limit pagination.
package option

import (
	"fmt"

	"gorm.io/gorm"
)

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func (c Condition) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
}

func ApplyOperator(c Condition) QueryOption { return c }

type orderBy struct {
	expr string
}

func (o orderBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.expr)
}

func WithOrder(expr string) QueryOption { return orderBy{expr: expr} }

// QuerySortBy orders results by a caller-supplied column, restricted to
// an allow-list. Unknown or disallowed fields fall back to created_at.
type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

func (s QuerySortBy) Apply(db *gorm.DB) *gorm.DB {
	field := s.Field
	if field == "" || (s.Allow != nil && !s.Allow[field]) {
		field = "created_at"
	}
	direction := "asc"
	if s.Desc {
		direction = "desc"
	}
	return db.Order(fmt.Sprintf("%s %s", field, direction))
}

func WithSortBy(s QuerySortBy) QueryOption { return s }

type limitOffset struct {
	limit  int
	offset int
}

func (l limitOffset) Apply(db *gorm.DB) *gorm.DB {
	if l.limit > 0 {
		db = db.Limit(l.limit)
	}
	if l.offset > 0 {
		db = db.Offset(l.offset)
	}
	return db
}

func WithLimitOffset(limit, offset int) QueryOption {
	return limitOffset{limit: limit, offset: offset}
}
