package activities

import (
	"context"
)

// Filter narrows List results. Empty fields are ignored; set fields are
// combined with AND.
type Filter struct {
	// StartDate and EndDate bound createDate inclusively, compared as text.
	StartDate string
	EndDate   string
	Category  string
	State     string
	// Search matches title or description as a substring.
	Search string
	Tag    string
}

// Row is one activities row as returned by the driver.
type Row struct {
	Columns []string
	Values  []any
}

// Repository executes activity statements against one partition. Every
// statement is scoped to the owning user id.
type Repository interface {
	Insert(ctx context.Context, userID int64, columns []string, values []any) (int64, error)
	Select(ctx context.Context, userID int64, f Filter, limit, offset int) ([]Row, error)
	GetByID(ctx context.Context, userID, id int64) (*Row, error)
	Exists(ctx context.Context, userID, id int64) (bool, error)
	Update(ctx context.Context, userID, id int64, columns []string, values []any) (int64, error)
	Delete(ctx context.Context, userID, id int64) (int64, error)
}
