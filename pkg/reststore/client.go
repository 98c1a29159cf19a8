package reststore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
	"github.com/goliatone/go-portal-metrics/pkg/retry"
)

// Config configures the hosted store client.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Retry      retry.Policy
}

// Client talks to a PostgREST-style endpoint exposing the dashboard tables
// under /rest/v1/<table>.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  retry.Policy
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reststore: remote error %d: %s", e.Status, e.Body)
}

// NewClient builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("reststore: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
		policy:  cfg.Retry,
	}, nil
}

var tables = map[metrics.Dataset]string{
	metrics.DatasetTopFeatures:       "features",
	metrics.DatasetResponsiveness:    "responsiveness_trends",
	metrics.DatasetCommitment:        "commitment_trends",
	metrics.DatasetEngagement:        "continued_engagement",
	metrics.DatasetClientSubmissions: "client_submissions",
	metrics.DatasetCollaboration:     "cross_client_collaboration",
	metrics.DatasetForums:            "data_socialization_forums",
}

func byProduct(product, order string) url.Values {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("product", "eq."+product)
	if order != "" {
		q.Set("order", order)
	}
	return q
}

func list[T any](ctx context.Context, c *Client, table string, query url.Values) ([]T, error) {
	var rows []T
	if err := c.do(ctx, http.MethodGet, table, query, nil, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Features(ctx context.Context, product string) ([]metrics.Feature, error) {
	return list[metrics.Feature](ctx, c, "features", byProduct(product, "quarter.asc,votes.desc"))
}

func (c *Client) Responsiveness(ctx context.Context, product string) ([]metrics.ResponsivenessTrend, error) {
	return list[metrics.ResponsivenessTrend](ctx, c, "responsiveness_trends", byProduct(product, "quarter.asc"))
}

func (c *Client) Commitments(ctx context.Context, product string) ([]metrics.CommitmentTrend, error) {
	return list[metrics.CommitmentTrend](ctx, c, "commitment_trends", byProduct(product, "year.asc,quarter.asc"))
}

func (c *Client) Engagement(ctx context.Context, product string) ([]metrics.ContinuedEngagement, error) {
	return list[metrics.ContinuedEngagement](ctx, c, "continued_engagement", byProduct(product, "quarter.asc"))
}

func (c *Client) ClientSubmissions(ctx context.Context, product string) ([]metrics.ClientSubmission, error) {
	return list[metrics.ClientSubmission](ctx, c, "client_submissions", byProduct(product, "quarter.asc"))
}

func (c *Client) Collaboration(ctx context.Context, product string) ([]metrics.CrossClientCollaboration, error) {
	return list[metrics.CrossClientCollaboration](ctx, c, "cross_client_collaboration", byProduct(product, "quarter.asc"))
}

func (c *Client) Forums(ctx context.Context, product string) ([]metrics.ForumEntry, error) {
	return list[metrics.ForumEntry](ctx, c, "data_socialization_forums", byProduct(product, "quarter.asc"))
}

// ReplaceBatch deletes the product rows and posts the batch. The endpoint offers
// no transaction across requests, so when the insert fails the deleted rows are
// posted back.
func (c *Client) ReplaceBatch(ctx context.Context, batch metrics.Batch) error {
	table, ok := tables[batch.Dataset]
	if !ok {
		return fmt.Errorf("reststore: unsupported dataset %q", batch.Dataset)
	}
	var previous []json.RawMessage
	q := url.Values{}
	q.Set("product", "eq."+batch.Product)
	if err := c.do(ctx, http.MethodDelete, table, q, nil, "return=representation", &previous); err != nil {
		return fmt.Errorf("reststore: clear %s: %w", table, err)
	}
	rows := batchRows(batch)
	if rows == nil {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, table, nil, rows, "return=minimal", nil); err != nil {
		if len(previous) > 0 {
			if rerr := c.do(ctx, http.MethodPost, table, nil, previous, "return=minimal", nil); rerr != nil {
				return errors.Join(fmt.Errorf("reststore: insert %s: %w", table, err),
					fmt.Errorf("reststore: restore %s: %w", table, rerr))
			}
		}
		return fmt.Errorf("reststore: insert %s: %w", table, err)
	}
	return nil
}

func batchRows(b metrics.Batch) any {
	switch b.Dataset {
	case metrics.DatasetTopFeatures:
		return nonNil(b.Features)
	case metrics.DatasetResponsiveness:
		return nonNil(b.Responsiveness)
	case metrics.DatasetCommitment:
		return nonNil(b.Commitments)
	case metrics.DatasetEngagement:
		return nonNil(b.Engagement)
	case metrics.DatasetClientSubmissions:
		return nonNil(b.Clients)
	case metrics.DatasetCollaboration:
		return nonNil(b.Collaboration)
	case metrics.DatasetForums:
		return nonNil(b.Forums)
	}
	return nil
}

func nonNil[T any](rows []T) any {
	if len(rows) == 0 {
		return nil
	}
	return rows
}

func (c *Client) ActionItems(ctx context.Context, product, quarter string) ([]metrics.ActionItem, error) {
	q := byProduct(product, "created_at.asc,id.asc")
	if quarter != "" {
		q.Set("quarter", "eq."+quarter)
	}
	return list[metrics.ActionItem](ctx, c, "action_items", q)
}

func (c *Client) ActionItem(ctx context.Context, id string) (metrics.ActionItem, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	items, err := list[metrics.ActionItem](ctx, c, "action_items", q)
	if err != nil {
		return metrics.ActionItem{}, err
	}
	if len(items) == 0 {
		return metrics.ActionItem{}, fmt.Errorf("%w: action item %s", metrics.ErrNotFound, id)
	}
	return items[0], nil
}

func (c *Client) SaveActionItem(ctx context.Context, item metrics.ActionItem) error {
	q := url.Values{}
	q.Set("on_conflict", "id")
	return c.do(ctx, http.MethodPost, "action_items", q, []metrics.ActionItem{item}, "resolution=merge-duplicates,return=minimal", nil)
}

func (c *Client) DeleteActionItem(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	var deleted []json.RawMessage
	if err := c.do(ctx, http.MethodDelete, "action_items", q, nil, "return=representation", &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return fmt.Errorf("%w: action item %s", metrics.ErrNotFound, id)
	}
	return nil
}

func (c *Client) DashboardState(ctx context.Context, userID string) (metrics.DashboardState, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	states, err := list[metrics.DashboardState](ctx, c, "dashboards", q)
	if err != nil {
		return metrics.DashboardState{}, err
	}
	if len(states) == 0 {
		return metrics.DashboardState{}, metrics.ErrNotFound
	}
	return states[0], nil
}

func (c *Client) SaveDashboardState(ctx context.Context, state metrics.DashboardState) error {
	q := url.Values{}
	q.Set("on_conflict", "user_id")
	return c.do(ctx, http.MethodPost, "dashboards", q, []metrics.DashboardState{state}, "resolution=merge-duplicates,return=minimal", nil)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, payload any, prefer string, target any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("reststore: encode payload: %w", err)
		}
		body = encoded
	}
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	policy := c.policy
	if method == http.MethodPost {
		// inserts are not idempotent
		policy.MaxAttempts = 1
	}
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("reststore: build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}
		if c.apiKey != "" {
			req.Header.Set("apikey", c.apiKey)
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("reststore: http request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			statusErr := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}
		if target == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
			return retry.Permanent(fmt.Errorf("reststore: decode response: %w", err))
		}
		return nil
	})
}

var _ metrics.Repository = (*Client)(nil)
