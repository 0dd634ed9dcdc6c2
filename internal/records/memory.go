package records

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store. Each table keeps its rows in insertion
// order and hands out ids from its own counter.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memTable
	now    func() time.Time

	// FailUpdate, when set, is consulted before every Update.
	FailUpdate func(table string, id int64) error
}

type memTable struct {
	next int64
	rows []Row
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]*memTable),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for created_at.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) table(name string) *memTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{next: 1}
		m.tables[name] = t
	}
	return t
}

// Insert stores a copy of row and returns it with id and created_at filled.
func (m *Memory) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)
	stored := make(Row, len(row)+2)
	for k, v := range row {
		stored[k] = normalize(v)
	}
	stored["id"] = t.next
	t.next++
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = m.now()
	}
	t.rows = append(t.rows, stored)
	return copyRow(stored), nil
}

// Select returns copies of matching rows.
func (m *Memory) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[table]
	if !ok {
		return []Row{}, nil
	}
	out := make([]Row, 0, len(t.rows))
	for _, row := range t.rows {
		if matchAll(row, q.Filters) {
			out = append(out, copyRow(row))
		}
	}
	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j], q.Order)
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Update merges patch into the row with the given id.
func (m *Memory) Update(ctx context.Context, table string, id int64, patch Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailUpdate != nil {
		if err := m.FailUpdate(table, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return nil
	}
	for _, row := range t.rows {
		if row["id"] == id {
			for k, v := range patch {
				if k == "id" || k == "created_at" {
					continue
				}
				row[k] = normalize(v)
			}
			return nil
		}
	}
	return nil
}

// SelectOne returns the first matching row.
func (m *Memory) SelectOne(ctx context.Context, table string, filters ...Filter) (Row, error) {
	rows, err := m.Select(ctx, table, Query{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func matchAll(row Row, filters []Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		switch f.Op {
		case OpIsNull:
			if v != nil {
				return false
			}
		case OpNotNull:
			if v == nil {
				return false
			}
		case OpEq:
			want := normalize(f.Value)
			if v == nil || want == nil || !reflect.DeepEqual(v, want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// less orders rows the way Postgres does: nulls last ascending, first descending.
func less(a, b Row, order []Order) bool {
	for _, o := range order {
		c := compare(a[o.Column], b[o.Column])
		if c == 0 {
			continue
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpOrdered(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpOrdered(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmpOrdered(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return cmpOrdered(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// normalize collapses integer kinds to int64 and dereferences pointers so
// that equality checks are independent of how a caller typed its values.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}
