package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Table names used by the wedding service.
const (
	TableRSVPs         = "rsvps"
	TableDietary       = "dietary_restrictions"
	TableSongRequests  = "song_requests"
	TableMessages      = "messages"
	TableLoginAttempts = "login_attempts"
)

var (
	// ErrNotFound is returned by SelectOne when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrNotConfigured means the backing store was never set up.
	ErrNotConfigured = errors.New("record store is not configured")
)

// Row is a single record keyed by column name.
type Row map[string]any

// Op is a filter operator.
type Op string

const (
	OpEq      Op = "eq"
	OpIsNull  Op = "is.null"
	OpNotNull Op = "not.is.null"
)

// Filter restricts a select to rows whose column satisfies Op.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// IsNull builds a null filter.
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// NotNull builds a not-null filter.
func NotNull(column string) Filter { return Filter{Column: column, Op: OpNotNull} }

// Order is one sort term.
type Order struct {
	Column string
	Desc   bool
}

// Asc and Desc build sort terms.
func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Query describes a select.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

// Store is the CRUD contract the hosted data store is consumed through.
type Store interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Update(ctx context.Context, table string, id int64, patch Row) error
	SelectOne(ctx context.Context, table string, filters ...Filter) (Row, error)
}

// Decode converts a row into dst using the row's JSON representation.
// Struct fields are matched by their json tags.
func Decode(row Row, dst any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}

// DecodeAll decodes every row into a new slice of T.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := Decode(row, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func validColumn(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// JSONList is a list column. SQL backends hand it back as JSON text while
// the REST backend returns a real array; both decode into the same value.
type JSONList []string

// UnmarshalJSON accepts an array, a string holding an encoded array, or null.
func (l *JSONList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = JSONList{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = JSONList{}
			return nil
		}
		data = []byte(s)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode list column: %w", err)
	}
	*l = out
	return nil
}
