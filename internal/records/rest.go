package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	placeholderURL = "https://placeholder.supabase.co"
	placeholderKey = "placeholder-key"
)

// APIError is a non-2xx reply from the REST endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store api error %d: %s", e.Status, e.Body)
}

// REST talks to a PostgREST endpoint (the interface Supabase exposes under /rest/v1).
type REST struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewREST creates a client. baseURL is the project URL without the /rest/v1 suffix.
func NewREST(baseURL, apiKey string) *REST {
	return &REST{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsConfigured reports whether the URL and key look like real credentials
// rather than the placeholders shipped in example env files.
func (c *REST) IsConfigured() bool {
	if c == nil || c.BaseURL == "" || c.APIKey == "" {
		return false
	}
	if c.BaseURL == placeholderURL || c.APIKey == placeholderKey {
		return false
	}
	return !strings.Contains(c.BaseURL, "your-project-ref") && !strings.Contains(c.APIKey, "your-anon-key")
}

// Insert posts a single row and returns the stored representation.
func (c *REST) Insert(ctx context.Context, table string, row Row) (Row, error) {
	body, err := json.Marshal([]Row{row})
	if err != nil {
		return nil, fmt.Errorf("encode insert: %w", err)
	}
	var out []Row
	if err := c.do(ctx, http.MethodPost, table, nil, body, &out); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return out[0], nil
}

// Select fetches rows matching q.
func (c *REST) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	params, err := queryParams(q)
	if err != nil {
		return nil, err
	}
	out := []Row{}
	if err := c.do(ctx, http.MethodGet, table, params, nil, &out); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}

// Update patches the row with the given id.
func (c *REST) Update(ctx context.Context, table string, id int64, patch Row) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	params := url.Values{}
	params.Set("id", "eq."+strconv.FormatInt(id, 10))
	if err := c.do(ctx, http.MethodPatch, table, params, body, nil); err != nil {
		return fmt.Errorf("update %s %d: %w", table, id, err)
	}
	return nil
}

// SelectOne returns the first matching row or ErrNotFound.
func (c *REST) SelectOne(ctx context.Context, table string, filters ...Filter) (Row, error) {
	rows, err := c.Select(ctx, table, Query{Filters: filters, Order: []Order{Asc("id")}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (c *REST) do(ctx context.Context, method, table string, params url.Values, body []byte, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if !validColumn(table) {
		return fmt.Errorf("invalid table %q", table)
	}
	endpoint := c.BaseURL + "/rest/v1/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rows, ok := out.(*[]Row); ok {
		for _, row := range *rows {
			fixNumbers(row)
		}
	}
	return nil
}

func queryParams(q Query) (url.Values, error) {
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.Filters {
		if !validColumn(f.Column) {
			return nil, fmt.Errorf("invalid column %q", f.Column)
		}
		switch f.Op {
		case OpEq:
			params.Add(f.Column, "eq."+fmt.Sprint(normalize(f.Value)))
		case OpIsNull:
			params.Add(f.Column, "is.null")
		case OpNotNull:
			params.Add(f.Column, "not.is.null")
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	if len(q.Order) > 0 {
		terms := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if !validColumn(o.Column) {
				return nil, fmt.Errorf("invalid column %q", o.Column)
			}
			dir := ".asc"
			if o.Desc {
				dir = ".desc"
			}
			terms = append(terms, o.Column+dir)
		}
		params.Set("order", strings.Join(terms, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params, nil
}

// fixNumbers turns integral json.Number values into int64 so REST rows
// carry the same types as SQL rows.
func fixNumbers(row Row) {
	for k, v := range row {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			row[k] = i
		} else if f, err := n.Float64(); err == nil {
			row[k] = f
		}
	}
}
