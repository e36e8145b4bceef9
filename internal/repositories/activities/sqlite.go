package activities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/dbx"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	gen models.Generation

	table      string
	idCol      string
	userCol    string
	createdCol string
}

// NewSQLiteRepository binds the repository to a partition whose activities
// table is on generation gen.
func NewSQLiteRepository(db dbx.DBTX, gen models.Generation) *SQLiteRepository {
	col := func(name string) string {
		a, _ := models.LookupAttribute(name)
		return dbx.Quote(a.Column(gen))
	}
	return &SQLiteRepository{
		db:         db,
		gen:        gen,
		table:      dbx.Quote(models.ActivitiesTable),
		idCol:      col(models.AttrID),
		userCol:    col(models.AttrUserID),
		createdCol: col(models.AttrCreateDate),
	}
}

func (r *SQLiteRepository) column(name string) string {
	a, _ := models.LookupAttribute(name)
	return dbx.Quote(a.Column(r.gen))
}

// Insert stores a new row owned by userID and returns its id. A user id
// among columns is replaced by userID.
func (r *SQLiteRepository) Insert(ctx context.Context, userID int64, columns []string, values []any) (int64, error) {
	userAttr, _ := models.LookupAttribute(models.AttrUserID)
	userColumn := userAttr.Column(r.gen)

	cols := []string{r.userCol}
	args := []any{userID}
	for i, c := range columns {
		if c == userColumn {
			continue
		}
		cols = append(cols, dbx.Quote(c))
		args = append(args, values[i])
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		r.table, strings.Join(cols, ", "), placeholders(len(cols)))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	return id, nil
}

// Select returns the user's rows matching f, newest createDate first.
func (r *SQLiteRepository) Select(ctx context.Context, userID int64, f Filter, limit, offset int) ([]Row, error) {
	where, args := r.buildWhere(userID, f)

	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s ORDER BY %s DESC LIMIT ? OFFSET ?`,
		r.table, where, r.createdCol)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}

	out := []Row{}
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	return out, nil
}

// buildWhere renders the ownership predicate plus the filter conditions.
func (r *SQLiteRepository) buildWhere(userID int64, f Filter) (string, []any) {
	conds := []string{r.userCol + " = ?"}
	args := []any{userID}

	if f.StartDate != "" {
		conds = append(conds, r.createdCol+" >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, r.createdCol+" <= ?")
		args = append(args, f.EndDate)
	}
	if f.Category != "" {
		c := r.column(models.AttrCategory)
		conds = append(conds, fmt.Sprintf("(%s = ? OR %s LIKE ? OR %s LIKE ?)", c, c, c))
		args = append(args, f.Category, `%"`+f.Category+`"%`, "%"+f.Category+"%")
	}
	if f.State != "" {
		conds = append(conds, r.column(models.AttrState)+" = ?")
		args = append(args, f.State)
	}
	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(%s LIKE ? OR %s LIKE ?)",
			r.column(models.AttrTitle), r.column(models.AttrDescription)))
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	if f.Tag != "" {
		conds = append(conds, r.column(models.AttrTags)+" LIKE ?")
		args = append(args, `%"`+f.Tag+`"%`)
	}

	return strings.Join(conds, " AND "), args
}

func (r *SQLiteRepository) GetByID(ctx context.Context, userID, id int64) (*Row, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = ? AND %s = ?`, r.table, r.idCol, r.userCol)

	rows, err := r.db.QueryContext(ctx, query, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
		}
		return nil, common.ErrNotFound
	}
	return scanRow(rows, cols)
}

func (r *SQLiteRepository) Exists(ctx context.Context, userID, id int64) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = ? AND %s = ?`, r.table, r.idCol, r.userCol)

	var one int
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	return true, nil
}

// Update writes the given columns and returns the number of rows changed.
func (r *SQLiteRepository) Update(ctx context.Context, userID, id int64, columns []string, values []any) (int64, error) {
	if len(columns) == 0 {
		return 0, nil
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = dbx.Quote(c) + " = ?"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ? AND %s = ?`,
		r.table, strings.Join(sets, ", "), r.idCol, r.userCol)

	args := append(append([]any{}, values...), id, userID)
	return r.exec(ctx, query, args...)
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id int64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND %s = ?`, r.table, r.idCol, r.userCol)
	return r.exec(ctx, query, id, userID)
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	return n, nil
}

func scanRow(rows *sql.Rows, cols []string) (*Row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStorage, err)
	}
	return &Row{Columns: cols, Values: vals}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
