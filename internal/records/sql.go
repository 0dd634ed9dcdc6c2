package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SQL implements Store on top of database/sql. It emits $N placeholders,
// which both the pgx and sqlite3 drivers accept.
type SQL struct {
	db *sql.DB
}

// NewSQL wraps an open database handle.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// Insert writes row and returns the stored representation.
func (s *SQL) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	if !validColumn(table) {
		return nil, fmt.Errorf("invalid table %q", table)
	}
	if _, ok := row["created_at"]; !ok {
		row = copyRow(row)
		row["created_at"] = time.Now().UTC()
	}

	cols := sortedKeys(row)
	quoted := make([]string, 0, len(cols))
	marks := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		if !validColumn(c) {
			return nil, fmt.Errorf("invalid column %q", c)
		}
		quoted = append(quoted, quote(c))
		marks = append(marks, "$"+strconv.Itoa(i+1))
		v, err := sqlValue(row[c])
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	query := "INSERT INTO " + quote(table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") RETURNING id"
	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	// Re-read so column types come from the table declaration.
	stored, err := s.SelectOne(ctx, table, Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return stored, nil
}

// Select runs a filtered, ordered select.
func (s *SQL) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	query, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()
	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}

// Update applies patch to the row with the given id.
func (s *SQL) Update(ctx context.Context, table string, id int64, patch Row) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if !validColumn(table) {
		return fmt.Errorf("invalid table %q", table)
	}
	if len(patch) == 0 {
		return nil
	}
	cols := sortedKeys(patch)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		if !validColumn(c) {
			return fmt.Errorf("invalid column %q", c)
		}
		sets = append(sets, quote(c)+" = $"+strconv.Itoa(i+1))
		v, err := sqlValue(patch[c])
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	args = append(args, id)
	query := "UPDATE " + quote(table) + " SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s %d: %w", table, id, err)
	}
	return nil
}

// SelectOne returns the first matching row or ErrNotFound.
func (s *SQL) SelectOne(ctx context.Context, table string, filters ...Filter) (Row, error) {
	rows, err := s.Select(ctx, table, Query{Filters: filters, Order: []Order{Asc("id")}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func buildSelect(table string, q Query) (string, []any, error) {
	if !validColumn(table) {
		return "", nil, fmt.Errorf("invalid table %q", table)
	}
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT * FROM ")
	b.WriteString(quote(table))

	clauses := make([]string, 0, len(q.Filters))
	for _, f := range q.Filters {
		if !validColumn(f.Column) {
			return "", nil, fmt.Errorf("invalid column %q", f.Column)
		}
		switch f.Op {
		case OpEq:
			v, err := sqlValue(f.Value)
			if err != nil {
				return "", nil, err
			}
			args = append(args, v)
			clauses = append(clauses, quote(f.Column)+" = $"+strconv.Itoa(len(args)))
		case OpIsNull:
			clauses = append(clauses, quote(f.Column)+" IS NULL")
		case OpNotNull:
			clauses = append(clauses, quote(f.Column)+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if len(q.Order) > 0 {
		terms := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if !validColumn(o.Column) {
				return "", nil, fmt.Errorf("invalid column %q", o.Column)
			}
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}
			terms = append(terms, quote(o.Column)+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String(), args, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// sqlValue converts list and map values into JSON text; scalars pass through.
func sqlValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		if _, ok := v.([]byte); ok {
			return v, nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode column value: %w", err)
		}
		return string(raw), nil
	}
	return v, nil
}

func quote(ident string) string { return `"` + ident + `"` }

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsNotFound reports whether err is a not-found condition from any backend.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
